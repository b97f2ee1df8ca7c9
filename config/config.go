package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

type Config struct {
	Address          string `env:"ADDRESS" envDefault:":8080"`
	StoreDriver      string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath       string `env:"SQLITE_PATH" envDefault:"./sushi.db"`
	AWSRegion        string `env:"AWS_REGION" envDefault:"ap-northeast-1"`
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT"`
	ScanPageSize     int    `env:"SCAN_PAGE_SIZE" envDefault:"200"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile          string `env:"LOG_FILE"`
	SeedDir          string `env:"SEED_DIR" envDefault:"./seed"`
}

var (
	cfg Config
	mu  sync.RWMutex
)

const envFilePath = ".env"

// LoadConfig は .env (存在すれば) と環境変数から設定を読み込みます。
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{envFilePath}
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var tempCfg Config
	if err := env.Parse(&tempCfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := tempCfg.validate(); err != nil {
		return Config{}, err
	}

	mu.Lock()
	cfg = tempCfg
	mu.Unlock()
	return tempCfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ScanPageSize <= 0 {
		c.ScanPageSize = 200
	}
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
