package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"chatterbox/internal/auth"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	// ChatServerHost 为空时 /api/config 返回 null，前端回退到当前页面的主机。
	ChatServerHost string
	Version        string
	HistoryDSN     string
	StaticDir      string
	// TrustedProxies 为空时不信任任何代理头，限速按 TCP 对端地址计算。
	TrustedProxies []string

	SendBuffer      int
	MaxMessageBytes int64
	EventRate       float64
	EventBurst      int
	PasswordCost    int
}

const (
	defaultSendBuffer      = 256
	defaultMaxMessageBytes = 4 << 20
	defaultEventRate       = 20
	defaultEventBurst      = 40
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// getenvInt 解析失败或非正数时回退到默认值。
func getenvInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// getenvList 解析逗号分隔的列表，忽略空项。
func getenvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getenvFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func Load() Config {
	cost := getenvInt("ROOM_PASSWORD_COST", bcrypt.MinCost)
	if cost < bcrypt.MinCost || cost > auth.MaxCost {
		cost = bcrypt.MinCost
	}
	return Config{
		Port:            getenv("PORT", "5000"),
		Env:             getenv("APP_ENV", "dev"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		ChatServerHost:  os.Getenv("CHAT_SERVER_URL"),
		Version:         getenv("APP_VERSION", "1.0.0"),
		HistoryDSN:      getenv("HISTORY_DSN", "file::memory:?cache=shared"),
		StaticDir:       getenv("STATIC_DIR", "./public"),
		TrustedProxies:  getenvList("TRUSTED_PROXIES"),
		SendBuffer:      getenvInt("WS_SEND_BUFFER", defaultSendBuffer),
		MaxMessageBytes: int64(getenvInt("WS_MAX_MESSAGE_BYTES", defaultMaxMessageBytes)),
		EventRate:       getenvFloat("WS_EVENT_RATE", defaultEventRate),
		EventBurst:      getenvInt("WS_EVENT_BURST", defaultEventBurst),
		PasswordCost:    cost,
	}
}

// Validate 检查启动所必需的配置项。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	if n, err := strconv.Atoi(cfg.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid PORT %q", cfg.Port)
	}
	if cfg.HistoryDSN == "" {
		return errors.New("HISTORY_DSN is required")
	}
	if cfg.SendBuffer <= 0 {
		return errors.New("WS_SEND_BUFFER must be positive")
	}
	if cfg.EventBurst <= 0 || cfg.EventRate <= 0 {
		return errors.New("WS_EVENT_RATE and WS_EVENT_BURST must be positive")
	}
	// 建房时的 bcrypt 哈希在 hub goroutine 上完成。
	if cfg.PasswordCost < bcrypt.MinCost || cfg.PasswordCost > auth.MaxCost {
		return fmt.Errorf("ROOM_PASSWORD_COST %d outside [%d, %d]", cfg.PasswordCost, bcrypt.MinCost, auth.MaxCost)
	}
	return nil
}
