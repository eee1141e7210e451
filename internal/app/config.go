package app

import (
	"fmt"
	"os"
	"strings"
)

// Config описывает настройки запуска сервера breaks.
type Config struct {
	// HTTPAddr — адрес основного HTTP API (webhook, stream, действия).
	HTTPAddr string
	// OpsAddr — адрес служебного сервера (/metrics, /healthz, /livez, /readyz).
	OpsAddr string
	// DatabaseURL — DSN PostgreSQL. Пустой означает хранилище в памяти.
	DatabaseURL string
	// KafkaBrokers — список брокеров через запятую. Пустой отключает Kafka.
	KafkaBrokers string
	// AuthKeys — статические пары user:key через запятую для режима без
	// базы. С PostgreSQL ключи читаются из таблицы authentication_keys.
	AuthKeys string
}

// DefaultConfig возвращает базовые адреса API и служебного сервера.
func DefaultConfig() Config {
	return Config{
		HTTPAddr: ":3000",
		OpsAddr:  ":9090",
	}
}

// ConfigFromEnv собирает конфигурацию из окружения поверх значений
// по умолчанию.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("BREAKS_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("BREAKS_OPS_ADDR"); v != "" {
		cfg.OpsAddr = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")
	cfg.AuthKeys = os.Getenv("BREAKS_AUTH_KEYS")
	return cfg
}

// parseAuthKeys разбирает "user:key,user2:key2" в отображение.
func parseAuthKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	if raw == "" {
		return keys, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, key, ok := strings.Cut(pair, ":")
		if !ok || user == "" || key == "" {
			return nil, fmt.Errorf("malformed auth key pair %q", pair)
		}
		keys[user] = key
	}
	return keys, nil
}
