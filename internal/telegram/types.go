package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"crypto-digest-bot/internal/broadcast"
	"crypto-digest-bot/internal/registry"
	"crypto-digest-bot/internal/scheduler"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token           string
	Debug           bool
	UpdatesTimeout  int
	IntervalSeconds int
	Assets          []string
}

// Bot telegram interaction client
type Bot struct {
	Bot    *tgbotapi.BotAPI
	Config BotConfig

	reg         *registry.Registry
	sched       *scheduler.Scheduler
	broadcaster *broadcast.Broadcaster
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
