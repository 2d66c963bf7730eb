package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config 定義 Logger 設定
type Config struct {
	Level      string `yaml:"level"`       // trace / debug / info / warn / error
	TimeFormat string `yaml:"time_format"` // 空字串時使用 RFC3339
	Pretty     bool   `yaml:"pretty"`      // 開發環境使用彩色 Console 輸出
}

const (
	serviceName    = "go-bank-ledger"
	serviceVersion = "1.0.0"
)

// New 以預設設定 (info, JSON) 建立 Logger
func New() zerolog.Logger {
	return NewWithConfig(Config{Level: "info", TimeFormat: time.RFC3339})
}

// NewWithConfig 依設定建立 Logger，輸出到 stdout
func NewWithConfig(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter 依設定建立寫入指定 io.Writer 的 Logger
//
// 參數:
//
//	cfg: Logger 設定，Level 無法解析時退回 info
//	w: 輸出目的地
//
// 回傳值:
//
//	zerolog.Logger: 帶有 service / version 欄位的 Logger
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				s, _ := i.(string)
				return colorizeLevel(s)
			},
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", serviceVersion).
		Logger()
}

func colorizeLevel(level string) string {
	switch level {
	case "trace":
		return "\033[35m" + level + "\033[0m"
	case "debug":
		return "\033[36m" + level + "\033[0m"
	case "info":
		return "\033[32m" + level + "\033[0m"
	case "warn":
		return "\033[33m" + level + "\033[0m"
	case "error":
		return "\033[31m" + level + "\033[0m"
	case "fatal", "panic":
		return "\033[91m" + level + "\033[0m"
	default:
		return level
	}
}
