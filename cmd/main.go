package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"crypto-digest-bot/config"
	"crypto-digest-bot/internal/analysis"
	"crypto-digest-bot/internal/broadcast"
	"crypto-digest-bot/internal/database"
	"crypto-digest-bot/internal/market"
	"crypto-digest-bot/internal/registry"
	"crypto-digest-bot/internal/scheduler"
	"crypto-digest-bot/internal/telegram"
	"crypto-digest-bot/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

type BotMetrics struct {
	CommandsProcessed prometheus.Counter
	CommandsByName    *prometheus.CounterVec
	MessagesHandled   prometheus.Counter
	BroadcastCycles   prometheus.Counter
	MessagesBroadcast prometheus.Counter
	Subscribers       prometheus.Gauge
}

var (
	metrics = NewBotMetrics()
)

func init() {
	config.InitConfig()
	setupLogging()
}

func NewBotMetrics() *BotMetrics {
	metrics := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryptodigest",
			Subsystem: "telegram_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		CommandsByName: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cryptodigest",
				Subsystem: "telegram_bot",
				Name:      "commands_by_name",
				Help:      "The total number of processed commands per command name",
			},
			[]string{"command"},
		),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryptodigest",
			Subsystem: "telegram_bot",
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		BroadcastCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryptodigest",
			Subsystem: "telegram_bot",
			Name:      "broadcast_cycles",
			Help:      "The total number of executed broadcast cycles",
		}),
		MessagesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryptodigest",
			Subsystem: "telegram_bot",
			Name:      "messages_broadcast",
			Help:      "The total number of digest messages delivered",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cryptodigest",
			Subsystem: "telegram_bot",
			Name:      "subscribers",
			Help:      "The current number of subscribed chats",
		}),
	}

	prometheus.MustRegister(metrics.CommandsProcessed)
	prometheus.MustRegister(metrics.CommandsByName)
	prometheus.MustRegister(metrics.MessagesHandled)
	prometheus.MustRegister(metrics.BroadcastCycles)
	prometheus.MustRegister(metrics.MessagesBroadcast)
	prometheus.MustRegister(metrics.Subscribers)

	return metrics
}

func main() {
	translation.Configure("locales", strings.ToLower(config.GetString("lang")))

	err := database.InitDB(config.GetString("database_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	LoadMetricsFromDB()

	reg := registry.Load(config.GetString("registry_path"))
	metrics.Subscribers.Set(float64(reg.Size()))

	assets := config.GetCSV("crypto_ids")
	fetcher := market.NewFetcher(config.GetString("price_api_url"), assets)
	generator := analysis.NewGenerator(
		config.GetString("completion_api_url"),
		config.GetString("completion_api_key"),
		config.GetString("completion_model"),
		config.GetString("lang"),
	)

	intervalSeconds := config.GetInt("broadcast_interval")
	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:           config.GetString("telegram_bot_token"),
		Debug:           config.GetBool("debug"),
		UpdatesTimeout:  60,
		IntervalSeconds: intervalSeconds,
		Assets:          assets,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	broadcaster := broadcast.New(fetcher, generator, bot, reg)
	sched := scheduler.New(time.Duration(intervalSeconds)*time.Second, newBroadcastCycle(reg, broadcaster))
	bot.Attach(reg, sched, broadcaster)

	// Registry loaded non-empty means subscribers are waiting for digests.
	if reg.Size() > 0 {
		sched.Start()
	}

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}

	go handleUpdates(bot, reg, updates)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			SaveMetricsToDB()
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		sched.Stop()
		SaveMetricsToDB()
		database.CloseDB()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

// newBroadcastCycle builds the scheduler's tick body. An empty registry
// skips the tick entirely, so the cycle counter only counts executed cycles.
func newBroadcastCycle(reg *registry.Registry, broadcaster *broadcast.Broadcaster) func() {
	return func() {
		if reg.Size() == 0 {
			log.Debug("registry empty, skipping broadcast cycle")
			return
		}
		metrics.BroadcastCycles.Inc()
		sent := broadcaster.RunAll(context.Background())
		metrics.MessagesBroadcast.Add(float64(sent))
		metrics.Subscribers.Set(float64(reg.Size()))
	}
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func handleUpdates(bot *telegram.Bot, reg *registry.Registry, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			log.Debug("Received non-message update")
			continue
		}

		metrics.MessagesHandled.Inc()
		handleCommand(bot, update)
		metrics.Subscribers.Set(float64(reg.Size()))
	}
}

func handleCommand(bot *telegram.Bot, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      bot.HandleUpdate(update),
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		metrics.CommandsProcessed.Inc()
		metrics.CommandsByName.WithLabelValues(commandLabel(update)).Inc()
	}
}

func commandLabel(update tgbotapi.Update) string {
	if cmd := update.Message.Command(); cmd != "" {
		return cmd
	}
	return "text"
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func LoadMetricsFromDB() {
	commandsProcessed, _ := database.GetMetric("commands_processed")
	messagesHandled, _ := database.GetMetric("messages_handled")
	broadcastCycles, _ := database.GetMetric("broadcast_cycles")
	messagesBroadcast, _ := database.GetMetric("messages_broadcast")

	metrics.CommandsProcessed.Add(commandsProcessed)
	metrics.MessagesHandled.Add(messagesHandled)
	metrics.BroadcastCycles.Add(broadcastCycles)
	metrics.MessagesBroadcast.Add(messagesBroadcast)

	commandCounts, _ := database.GetMetricsWithLabels("commands_by_name")
	for command, count := range commandCounts["command"] {
		metrics.CommandsByName.WithLabelValues(command).Add(count)
	}

	log.Println("Metrics loaded from database.")
}

func SaveMetricsToDB() {
	database.SaveMetric("commands_processed", GetMetricValue(metrics.CommandsProcessed))
	database.SaveMetric("messages_handled", GetMetricValue(metrics.MessagesHandled))
	database.SaveMetric("broadcast_cycles", GetMetricValue(metrics.BroadcastCycles))
	database.SaveMetric("messages_broadcast", GetMetricValue(metrics.MessagesBroadcast))

	metricChan := make(chan prometheus.Metric, 16)
	go func() {
		metrics.CommandsByName.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Printf("Failed to read CommandsByName metric: %v", err)
			continue
		}
		var command string
		for _, label := range metricProto.Label {
			if label.GetName() == "command" {
				command = label.GetValue()
			}
		}
		database.SaveMetricWithLabels("commands_by_name", "command", command, metricProto.Counter.GetValue())
	}

	log.Println("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
