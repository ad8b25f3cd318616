package telegram

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"crypto-digest-bot/internal/broadcast"
	"crypto-digest-bot/internal/market"
	"crypto-digest-bot/internal/registry"
	"crypto-digest-bot/internal/scheduler"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context) (*market.Snapshot, error) {
	return &market.Snapshot{Quotes: []market.Quote{
		{ID: "bitcoin", PriceUSD: 65432.1, Change24Pct: -2.345},
	}}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, snap *market.Snapshot) (string, error) {
	return "Market is stable.", nil
}

type recordingSender struct {
	sent chan string
}

func (s *recordingSender) Send(id, text string) error {
	s.sent <- id
	return nil
}

func testBot(t *testing.T) (*Bot, *registry.Registry, *scheduler.Scheduler, *recordingSender) {
	reg := registry.Load(filepath.Join(t.TempDir(), "subscribers.json"))
	sched := scheduler.New(time.Hour, func() {})
	sender := &recordingSender{sent: make(chan string, 8)}

	bot := &Bot{Config: BotConfig{
		IntervalSeconds: 3600,
		Assets:          []string{"bitcoin", "ethereum"},
	}}
	bot.Attach(reg, sched, broadcast.New(stubFetcher{}, stubGenerator{}, sender, reg))

	t.Cleanup(sched.Stop)
	return bot, reg, sched, sender
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, UserName: "tester"},
	}
	if len(text) > 0 && text[0] == '/' {
		cmdLen := len(text)
		for i, c := range text {
			if c == ' ' {
				cmdLen = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestHandleUpdate_StartSubscribesAndStartsScheduler(t *testing.T) {
	bot, reg, sched, _ := testBot(t)

	reply := bot.HandleUpdate(commandUpdate(100, "/start"))
	require.Contains(t, reply, "bitcoin, ethereum")
	require.Contains(t, reply, "every 1 h")

	require.True(t, reg.Contains("100"))
	require.True(t, sched.Running())
}

func TestHandleUpdate_StopUnsubscribes(t *testing.T) {
	bot, reg, _, _ := testBot(t)
	bot.HandleUpdate(commandUpdate(100, "/start"))

	bot.HandleUpdate(commandUpdate(100, "/stop"))
	require.False(t, reg.Contains("100"))
}

func TestHandleUpdate_Status(t *testing.T) {
	bot, _, _, _ := testBot(t)

	reply := bot.HandleUpdate(commandUpdate(100, "/status"))
	require.Contains(t, reply, "not subscribed")

	bot.HandleUpdate(commandUpdate(100, "/start"))
	reply = bot.HandleUpdate(commandUpdate(100, "/status"))
	require.Contains(t, reply, "subscribed")
	require.Contains(t, reply, "running")
}

func TestHandleUpdate_PlainTextSubscribesOnce(t *testing.T) {
	bot, reg, _, _ := testBot(t)

	reply := bot.HandleUpdate(commandUpdate(100, "hello"))
	require.Contains(t, reply, "activated")
	require.True(t, reg.Contains("100"))

	reply = bot.HandleUpdate(commandUpdate(100, "hello again"))
	require.Contains(t, reply, "already subscribed")
	require.Equal(t, 1, reg.Size())
}

func TestHandleUpdate_AnalyzeBroadcastsToRequesterOnly(t *testing.T) {
	bot, _, _, sender := testBot(t)
	bot.HandleUpdate(commandUpdate(100, "/start"))
	bot.HandleUpdate(commandUpdate(200, "/start"))

	reply := bot.HandleUpdate(commandUpdate(200, "/analyze"))
	require.Contains(t, reply, "Running analysis")

	select {
	case id := <-sender.sent:
		require.Equal(t, "200", id)
	case <-time.After(time.Second):
		t.Fatal("on-demand broadcast never sent")
	}

	select {
	case id := <-sender.sent:
		t.Fatalf("unexpected extra delivery to %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}
