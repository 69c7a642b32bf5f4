package notification

import (
	"fmt"
	"time"

	"guardian/backend/internal/model"
)

// 关联对象类型
const (
	relatedAlert   = "no_show_alert"
	relatedLicence = "licence"
)

// Message 与渠道无关的通知内容
type Message struct {
	Type        string
	Title       string
	Body        string
	RelatedType string
	RelatedID   string
}

// NoShowMessage 缺勤告警通知，时间按站点时区显示
func NoShowMessage(a *model.NoShowAlert, guard *model.User, loc *time.Location) Message {
	return Message{
		Type:  model.NotificationNoShow,
		Title: "缺勤告警",
		Body: fmt.Sprintf("%s 未在 %s 的班次开始后签到",
			guardLabel(a.GuardID, guard),
			a.ExpectedShiftStartTime.In(loc).Format("01-02 15:04")),
		RelatedType: relatedAlert,
		RelatedID:   a.AlertID,
	}
}

// LicenceMessage 上岗证到期提醒；today 为站点时区的当天日期，到期日在其之前的按已过期措辞
func LicenceMessage(l *model.Licence, guard *model.User, today time.Time) Message {
	title, verb := "上岗证即将到期", "将于 %s 到期"
	if model.DateOf(l.ExpiryDate).Before(model.DateOf(today)) {
		title, verb = "上岗证已过期", "已于 %s 过期"
	}
	return Message{
		Type:  model.NotificationLicence,
		Title: title,
		Body: fmt.Sprintf("%s 的 %s（%s）"+verb,
			guardLabel(l.GuardID, guard), l.LicenceType, l.LicenceNumber,
			l.ExpiryDate.Format(model.DateLayout)),
		RelatedType: relatedLicence,
		RelatedID:   l.LicenceID,
	}
}

func guardLabel(id string, u *model.User) string {
	if u == nil {
		return "保安 " + id
	}
	return fmt.Sprintf("%s（%s）", u.Name, u.BadgeNumber)
}
