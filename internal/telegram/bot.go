package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"crypto-digest-bot/internal/broadcast"
	"crypto-digest-bot/internal/registry"
	"crypto-digest-bot/internal/scheduler"
	"crypto-digest-bot/lib/helpers"
	"crypto-digest-bot/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// Attach wires the bot to the registry, scheduler and broadcaster it
// dispatches inbound commands to.
func (b *Bot) Attach(reg *registry.Registry, sched *scheduler.Scheduler, bc *broadcast.Broadcaster) {
	b.reg = reg
	b.sched = sched
	b.broadcaster = bc
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// SendMessage sends a telegram message, optionally as a reply.
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message: %v", m)
}

// Send delivers a broadcast message to one recipient. Telegram errors that
// mean the chat can never be reached again (blocked, chat deleted) are
// wrapped with broadcast.ErrRecipientGone so the cycle prunes the
// subscription; everything else is a transient failure.
func (b *Bot) Send(id, text string) error {
	chatID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid recipient id %q", id)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err = b.Bot.Send(msg)
	if err == nil {
		return nil
	}

	if tgErr, ok := err.(*tgbotapi.Error); ok && (tgErr.Code == 400 || tgErr.Code == 403) {
		return errors.Wrapf(broadcast.ErrRecipientGone, "send to %s: %v", id, err)
	}
	return errors.Wrapf(err, "could not send message to %s", id)
}

// OnSubscribe registers a chat and starts the scheduler on the first
// subscriber. Re-subscribing is harmless.
func (b *Bot) OnSubscribe(id, displayName string) {
	b.reg.Add(id, displayName)
	b.sched.Start()
}

// OnUnsubscribe drops a chat from the registry.
func (b *Bot) OnUnsubscribe(id string) {
	b.reg.Remove(id)
}

// OnDemandBroadcast runs one cycle for just the requesting chat without
// blocking the updates loop or the periodic schedule.
func (b *Bot) OnDemandBroadcast(id string) {
	go b.broadcaster.Run(context.Background(), []registry.Recipient{{ID: id}})
}

// HandleUpdate processes one inbound message and returns the reply text.
func (b *Bot) HandleUpdate(u tgbotapi.Update) string {
	chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
	log.Debugf("received command: %s", u.Message.Command())

	switch u.Message.Command() {
	case "start":
		b.OnSubscribe(chatID, chatDisplayName(u.Message.Chat))
		return b.welcomeText()
	case "stop":
		b.OnUnsubscribe(chatID)
		return translation.Translate("✅ You are unsubscribed. Send /start to get the digest again.")
	case "status":
		return b.statusText(chatID)
	case "analyze":
		b.OnDemandBroadcast(chatID)
		return translation.Translate("🔍 Running analysis...")
	case "":
		// Plain text activates the subscription, matching /start.
		if b.reg.Contains(chatID) {
			return translation.Translate("🤖 You are already subscribed. Use /analyze for an instant digest.")
		}
		b.OnSubscribe(chatID, chatDisplayName(u.Message.Chat))
		return fmt.Sprintf(
			translation.Translate("✅ Subscription activated! The digest will be sent %s."),
			helpers.FormatInterval(b.Config.IntervalSeconds),
		)
	}

	return translation.Translate("Command help message")
}

func (b *Bot) welcomeText() string {
	return fmt.Sprintf(
		translation.Translate("🤖 Welcome to the crypto digest bot!\n\nI analyze %s and send the results %s.\n\nCommands:\n/start - subscribe and show this message\n/status - current bot status\n/analyze - run an analysis now\n/stop - unsubscribe"),
		strings.Join(b.Config.Assets, ", "),
		helpers.FormatInterval(b.Config.IntervalSeconds),
	)
}

func (b *Bot) statusText(chatID string) string {
	if !b.reg.Contains(chatID) {
		return translation.Translate("❌ You are not subscribed. Send /start to subscribe.")
	}

	schedulerState := translation.Translate("running")
	if !b.sched.Running() {
		schedulerState = translation.Translate("stopped")
	}

	return fmt.Sprintf(
		translation.Translate("✅ You are subscribed\nSubscribers: %s\nScheduler: %s (%s)"),
		helpers.FormatCountUS(int64(b.reg.Size())),
		schedulerState,
		helpers.FormatInterval(b.Config.IntervalSeconds),
	)
}

func chatDisplayName(chat *tgbotapi.Chat) string {
	if chat == nil {
		return ""
	}
	if chat.Title != "" {
		return chat.Title
	}
	if chat.UserName != "" {
		return chat.UserName
	}
	return strings.TrimSpace(chat.FirstName + " " + chat.LastName)
}
