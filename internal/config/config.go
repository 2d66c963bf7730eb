package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/postgres"
	"github.com/JoeShih716/go-bank-ledger/pkg/redis"
)

// 儲存引擎
const (
	EngineMutex    = "mutex"
	EngineLMAX     = "lmax"
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// legacyTokenSecret 舊版預設密鑰，不允許使用
const legacyTokenSecret = "tokentest"

const minProductionSecretLen = 32

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Ledger   LedgerConfig    `yaml:"ledger"`
	MySQL    mysql.Config    `yaml:"mysql"`
	Postgres postgres.Config `yaml:"postgres"`
	Redis    RedisConfig     `yaml:"redis"`
	JWT      JWTConfig       `yaml:"jwt"`
	Logger   logger.Config   `yaml:"logger"`
}

type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LedgerConfig struct {
	Engine          string `yaml:"engine"`           // mutex / lmax / mysql / postgres
	WALPath         string `yaml:"wal_path"`         // 記憶體引擎使用
	SequencerBuffer int    `yaml:"sequencer_buffer"` // lmax 請求佇列長度
	NotifyBuffer    int    `yaml:"notify_buffer"`    // 餘額異動通知佇列長度
}

type RedisConfig struct {
	Enabled      bool `yaml:"enabled"`
	redis.Config `yaml:",inline"`
	Stream       string `yaml:"stream"`
	Group        string `yaml:"group"`
	Consumer     string `yaml:"consumer"`
	MaxLen       int64  `yaml:"max_len"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// Load 讀取 .env 與 YAML 設定檔
//
// .env 不存在時略過；YAML 內容中的 ${VAR} 會以環境變數展開
//
// 參數:
//
//	path: YAML 設定檔路徑
//
// 回傳值:
//
//	*Config: 已補全預設值並驗證過的設定
//	error: 讀檔、解析或驗證失敗
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容 (先展開環境變數)，補全預設值並驗證
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = EnvDevelopment
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Ledger.Engine == "" {
		c.Ledger.Engine = EngineMutex
	}
	if c.Ledger.WALPath == "" {
		c.Ledger.WALPath = "wal.log"
	}
	if c.Ledger.SequencerBuffer == 0 {
		c.Ledger.SequencerBuffer = 1000
	}
	if c.Ledger.NotifyBuffer == 0 {
		c.Ledger.NotifyBuffer = 1024
	}

	c.MySQL.SetDefaults()

	if c.Postgres.ConnectRetries == 0 {
		c.Postgres.ConnectRetries = 10
	}

	if c.Redis.Stream == "" {
		c.Redis.Stream = "ledger.balance"
	}
	if c.Redis.Group == "" {
		c.Redis.Group = "ledger-audit"
	}
	if c.Redis.Consumer == "" {
		c.Redis.Consumer = "audit-1"
	}
	if c.Redis.MaxLen == 0 {
		c.Redis.MaxLen = 100000
	}

	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "go-bank-ledger"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}

// Validate 檢查必要設定
func (c *Config) Validate() error {
	switch c.Ledger.Engine {
	case EngineMutex, EngineLMAX:
	case EngineMySQL:
		if c.MySQL.RawDSN == "" && c.MySQL.Host == "" {
			return errors.New("config: mysql engine requires mysql.host or mysql.dsn")
		}
	case EnginePostgres:
		if c.Postgres.URL == "" {
			return errors.New("config: postgres engine requires postgres.url")
		}
	default:
		return fmt.Errorf("config: unknown ledger engine %q", c.Ledger.Engine)
	}

	switch {
	case c.JWT.Secret == "":
		return errors.New("config: jwt.secret is required")
	case c.JWT.Secret == legacyTokenSecret:
		return errors.New("config: jwt.secret must not use the legacy default")
	case c.Server.Environment == EnvProduction && len(c.JWT.Secret) < minProductionSecretLen:
		return fmt.Errorf("config: jwt.secret must be at least %d bytes in production", minProductionSecretLen)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("config: redis.addr is required when redis is enabled")
	}
	return nil
}
