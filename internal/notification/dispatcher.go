package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// Sender 单个通知渠道；一次调用发送一批消息给所有接收人
type Sender interface {
	Name() string
	Send(ctx context.Context, recipients []model.User, msgs []Message) error
}

// batch 一次入队的待分发内容
type batch struct {
	alerts   []*model.NoShowAlert
	licences []model.Licence
}

// Dispatcher 通知分发工作池
// 检测流程只负责入队，发送失败不回传，也不影响告警本身
type Dispatcher struct {
	repo    *repository.Repository
	senders []Sender
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time

	workers int
	queue   chan batch
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher 创建分发器，workers <= 0 时取 1
func NewDispatcher(repo *repository.Repository, loc *time.Location, workers int, logger *zap.Logger, senders ...Sender) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		repo:    repo,
		senders: senders,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
		workers: workers,
		queue:   make(chan batch, workers*16),
	}
}

// Start 启动工作协程；ctx 取消后正在进行的发送会尽快结束
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	names := make([]string, 0, len(d.senders))
	for _, s := range d.senders {
		names = append(names, s.Name())
	}
	d.logger.Info("通知分发已启动", zap.Int("workers", d.workers), zap.Strings("senders", names))
}

// Stop 不再接收新任务，等待队列中的任务处理完
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("通知分发已停止")
}

// NotifyNoShows 新缺勤告警入队（不阻塞，队列满时丢弃并记录）
func (d *Dispatcher) NotifyNoShows(alerts []*model.NoShowAlert) {
	if len(alerts) == 0 {
		return
	}
	d.enqueue(batch{alerts: alerts})
}

// NotifyLicences 即将到期的上岗证入队
func (d *Dispatcher) NotifyLicences(licences []model.Licence) {
	if len(licences) == 0 {
		return
	}
	d.enqueue(batch{licences: licences})
}

func (d *Dispatcher) enqueue(b batch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("通知分发已停止，丢弃任务", zap.Int("alerts", len(b.alerts)), zap.Int("licences", len(b.licences)))
		return
	}
	select {
	case d.queue <- b:
	default:
		d.logger.Warn("通知队列已满，丢弃任务", zap.Int("alerts", len(b.alerts)), zap.Int("licences", len(b.licences)))
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for b := range d.queue {
		d.process(ctx, b)
	}
	d.logger.Debug("通知 worker 退出", zap.Int("worker", id))
}

// process 全部消息发给在职主管与管理员；上岗证提醒另外发给持证人本人，只含其自己的证件
func (d *Dispatcher) process(ctx context.Context, b batch) {
	guards := d.loadGuards(ctx, b)
	today := model.DateOf(d.now().In(d.loc))
	msgs := d.buildMessages(b, guards, today)
	if len(msgs) == 0 {
		return
	}

	recipients, err := d.repo.User.ListActiveByRoles(ctx, model.RoleSupervisor, model.RoleAdmin)
	switch {
	case err != nil:
		d.logger.Error("查询通知接收人失败", zap.Error(err))
	case len(recipients) == 0:
		d.logger.Warn("没有可接收通知的主管或管理员")
	default:
		d.deliver(ctx, recipients, msgs)
	}

	for _, h := range licenceHolders(b.licences, guards, today) {
		d.deliver(ctx, []model.User{*h.user}, h.msgs)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, recipients []model.User, msgs []Message) {
	for _, s := range d.senders {
		if err := s.Send(ctx, recipients, msgs); err != nil {
			d.logger.Error("通知发送失败",
				zap.String("sender", s.Name()),
				zap.Int("recipients", len(recipients)),
				zap.Int("messages", len(msgs)),
				zap.Error(err),
			)
		}
	}
}

// loadGuards 查询消息涉及的保安；失败时仍然发送，内容里只有 ID
func (d *Dispatcher) loadGuards(ctx context.Context, b batch) map[string]*model.User {
	ids := make([]string, 0, len(b.alerts)+len(b.licences))
	for _, a := range b.alerts {
		ids = append(ids, a.GuardID)
	}
	for i := range b.licences {
		ids = append(ids, b.licences[i].GuardID)
	}

	guards := make(map[string]*model.User, len(ids))
	users, err := d.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		d.logger.Warn("查询保安信息失败", zap.Error(err))
	}
	for i := range users {
		guards[users[i].UserID] = &users[i]
	}
	return guards
}

func (d *Dispatcher) buildMessages(b batch, guards map[string]*model.User, today time.Time) []Message {
	msgs := make([]Message, 0, len(b.alerts)+len(b.licences))
	for _, a := range b.alerts {
		msgs = append(msgs, NoShowMessage(a, guards[a.GuardID], d.loc))
	}
	for i := range b.licences {
		l := &b.licences[i]
		msgs = append(msgs, LicenceMessage(l, guards[l.GuardID], today))
	}
	return msgs
}

type holderDelivery struct {
	user *model.User
	msgs []Message
}

// licenceHolders 按持证人分组；停用账号和主管、管理员（已在上面收到全部消息）跳过
func licenceHolders(licences []model.Licence, guards map[string]*model.User, today time.Time) []holderDelivery {
	var out []holderDelivery
	index := make(map[string]int)
	for i := range licences {
		l := &licences[i]
		u := guards[l.GuardID]
		if u == nil || !u.IsActive || u.Role != model.RoleGuard {
			continue
		}
		pos, ok := index[u.UserID]
		if !ok {
			pos = len(out)
			index[u.UserID] = pos
			out = append(out, holderDelivery{user: u})
		}
		out[pos].msgs = append(out[pos].msgs, LicenceMessage(l, u, today))
	}
	return out
}
