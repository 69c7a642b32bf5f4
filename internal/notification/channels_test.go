package notification

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/model"
)

// ────────────────────── Web Push ──────────────────────

type fakePushClient struct {
	status map[string]int
	sent   []string
	bodies []string
}

func (f *fakePushClient) Send(payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
	f.sent = append(f.sent, sub.Endpoint)
	f.bodies = append(f.bodies, string(payload))
	code, ok := f.status[sub.Endpoint]
	if !ok {
		code = http.StatusCreated
	}
	if code == 0 {
		return nil, errors.New("network down")
	}
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func TestWebPushSender_Send(t *testing.T) {
	repo, db := newTestRepo(t)
	sup := seedUser(t, db, "S001", model.RoleSupervisor)
	other := seedUser(t, db, "S002", model.RoleSupervisor)
	ctx := context.Background()

	for _, sub := range []model.PushSubscription{
		{Endpoint: "https://push/ok", UserID: sup.UserID, P256DH: "k", Auth: "a"},
		{Endpoint: "https://push/gone", UserID: sup.UserID, P256DH: "k", Auth: "a"},
		{Endpoint: "https://push/other", UserID: other.UserID, P256DH: "k", Auth: "a"},
	} {
		require.NoError(t, repo.PushSubscription.Upsert(ctx, &sub))
	}

	client := &fakePushClient{status: map[string]int{"https://push/gone": http.StatusGone}}
	s := NewWebPushSender(&config.PushConfig{PublicKey: "pub", PrivateKey: "priv", TTL: 60}, repo, zap.NewNop())
	s.client = client

	msgs := []Message{
		{Type: model.NotificationNoShow, Title: "缺勤告警", Body: "一", RelatedID: "a1"},
		{Type: model.NotificationNoShow, Title: "缺勤告警", Body: "二", RelatedID: "a2"},
	}
	require.NoError(t, s.Send(ctx, []model.User{*sup}, msgs))

	// 失效订阅只尝试一次，其余订阅每条消息各一次；未在接收人列表中的订阅不发送
	assert.ElementsMatch(t, []string{"https://push/ok", "https://push/gone", "https://push/ok"}, client.sent)
	assert.Contains(t, client.bodies[0], `"related_id":"a1"`)
	assert.Contains(t, client.bodies[len(client.bodies)-1], `"related_id":"a2"`)

	left, err := repo.PushSubscription.ListByUserIDs(ctx, []string{sup.UserID})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "https://push/ok", left[0].Endpoint)
}

func TestWebPushSender_ReportsFailures(t *testing.T) {
	repo, db := newTestRepo(t)
	sup := seedUser(t, db, "S001", model.RoleSupervisor)
	ctx := context.Background()
	require.NoError(t, repo.PushSubscription.Upsert(ctx, &model.PushSubscription{Endpoint: "https://push/down", UserID: sup.UserID, P256DH: "k", Auth: "a"}))
	require.NoError(t, repo.PushSubscription.Upsert(ctx, &model.PushSubscription{Endpoint: "https://push/bad", UserID: sup.UserID, P256DH: "k", Auth: "a"}))

	s := NewWebPushSender(&config.PushConfig{PublicKey: "pub", PrivateKey: "priv"}, repo, zap.NewNop())
	s.client = &fakePushClient{status: map[string]int{"https://push/down": 0, "https://push/bad": http.StatusBadRequest}}

	err := s.Send(ctx, []model.User{*sup}, []Message{{Title: "t", Body: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 条推送失败")
}

// ────────────────────── Telegram ──────────────────────

type fakeBot struct {
	chats []int64
	texts []string
	fail  map[int64]bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.chats = append(f.chats, msg.ChatID)
	f.texts = append(f.texts, msg.Text)
	if f.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("forbidden")
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramSender_Send(t *testing.T) {
	bot := &fakeBot{}
	s := NewTelegramSender(bot, -100, zap.NewNop())

	chatA, chatDup := int64(11), int64(-100)
	recipients := []model.User{
		{UserID: "u1", Role: model.RoleSupervisor, TelegramChatID: &chatA},
		{UserID: "u2", TelegramChatID: &chatDup},
		{UserID: "u3"},
	}
	msgs := []Message{{Title: "缺勤告警", Body: "甲"}, {Title: "缺勤告警", Body: "乙"}}

	require.NoError(t, s.Send(context.Background(), recipients, msgs))
	assert.Equal(t, []int64{-100, 11}, bot.chats, "主管群在前且去重")
	assert.Equal(t, "【缺勤告警】甲\n\n【缺勤告警】乙", bot.texts[0])
}

func TestTelegramSender_GuardOnlySkipsSupervisorChat(t *testing.T) {
	bot := &fakeBot{}
	s := NewTelegramSender(bot, -100, zap.NewNop())
	chat := int64(42)

	require.NoError(t, s.Send(context.Background(), []model.User{{Role: model.RoleGuard, TelegramChatID: &chat}}, []Message{{Title: "t"}}))
	assert.Equal(t, []int64{42}, bot.chats)
}

func TestTelegramSender_NoChats(t *testing.T) {
	bot := &fakeBot{}
	s := NewTelegramSender(bot, 0, zap.NewNop())

	require.NoError(t, s.Send(context.Background(), []model.User{{UserID: "u1"}}, []Message{{Title: "t"}}))
	assert.Empty(t, bot.chats)
}

func TestTelegramSender_PartialFailure(t *testing.T) {
	bot := &fakeBot{fail: map[int64]bool{-100: true}}
	s := NewTelegramSender(bot, -100, zap.NewNop())
	chat := int64(7)

	err := s.Send(context.Background(), []model.User{{Role: model.RoleAdmin, TelegramChatID: &chat}}, []Message{{Title: "t"}})
	require.Error(t, err)
	assert.Equal(t, []int64{-100, 7}, bot.chats, "单个会话失败不影响其他会话")
}

// ────────────────────── 渠道组装 ──────────────────────

func TestBuildSenders(t *testing.T) {
	repo, _ := newTestRepo(t)

	cfg := &config.Config{}
	senders := BuildSenders(cfg, repo, zap.NewNop())
	require.Len(t, senders, 1)
	assert.Equal(t, "in_app", senders[0].Name())

	cfg.Push = config.PushConfig{PublicKey: "pub", PrivateKey: "priv"}
	senders = BuildSenders(cfg, repo, zap.NewNop())
	require.Len(t, senders, 2)
	assert.Equal(t, "web_push", senders[1].Name())
}

func TestInAppSender_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)
	assert.NoError(t, NewInAppSender(repo).Send(context.Background(), nil, []Message{{Title: "t"}}))
}
