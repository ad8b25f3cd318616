package config

import (
	"github.com/spf13/viper"
	"strings"
	"sync"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("completion_api_url", "COMPLETION_API_URL")
		viper.BindEnv("completion_api_key", "COMPLETION_API_KEY")
		viper.BindEnv("completion_model", "COMPLETION_MODEL")
		viper.BindEnv("price_api_url", "PRICE_API_URL")
		viper.BindEnv("crypto_ids", "CRYPTO_IDS")
		viper.BindEnv("broadcast_interval", "BROADCAST_INTERVAL")
		viper.BindEnv("registry_path", "REGISTRY_PATH")
		viper.BindEnv("database_path", "DATABASE_PATH")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("completion_model", "gpt-3.5-turbo")
		viper.SetDefault("price_api_url", "https://api.coingecko.com/api/v3/simple/price")
		viper.SetDefault("crypto_ids", "bitcoin,ethereum,cardano")
		viper.SetDefault("broadcast_interval", 3600)
		viper.SetDefault("registry_path", "/app/data/subscribers.json")
		viper.SetDefault("database_path", "/app/data/bot.db")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

// GetCSV returns a comma-separated config value as a trimmed slice.
func GetCSV(key string) []string {
	InitConfig()
	parts := strings.Split(viper.GetString(key), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
