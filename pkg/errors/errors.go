package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrLockNotAcquired 任务锁已被其他实例持有
var ErrLockNotAcquired = errors.New("任务正在其他实例上运行")
