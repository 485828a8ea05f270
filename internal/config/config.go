package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration, read from the environment (and .env via godotenv in main)
type Config struct {
	Port                 int
	PostgresURL          string
	SqlitePath           string
	ChainRegistryFile    string
	ContractArtifactsDir string

	HubChainIDs         []int64
	ReceiptMaxRetries   int
	ReceiptPollInterval time.Duration
	FallbackGasLimit    uint64
	CrossChainGasLimit  uint64

	WorkerCount      int
	TaskBufferSize   int
	ParallelSpokes   bool
	SpokeConcurrency int

	LogLevel  string
	LogFormat string

	v *viper.Viper
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("SQLITE_PATH", "~/universal-launchpad.db")
	v.SetDefault("SERVICE_PRIVATE_KEY", "")
	v.SetDefault("CHAIN_REGISTRY_FILE", "")
	v.SetDefault("CONTRACT_ARTIFACTS_DIR", "")
	v.SetDefault("HUB_CHAIN_IDS", "7000,7001")
	v.SetDefault("RECEIPT_MAX_RETRIES", 60)
	v.SetDefault("RECEIPT_POLL_INTERVAL", "2s")
	v.SetDefault("FALLBACK_GAS_LIMIT", 5_000_000)
	v.SetDefault("CROSS_CHAIN_GAS_LIMIT", 1_000_000)
	v.SetDefault("WORKER_COUNT", 4)
	v.SetDefault("TASK_BUFFER_SIZE", 64)
	v.SetDefault("PARALLEL_SPOKES", false)
	v.SetDefault("SPOKE_CONCURRENCY", 4)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads the configuration from the environment. An optional config file
// (any format viper understands) may be named by CONFIG_FILE; the environment wins over it.
func Load() (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	hubIDs, err := parseChainIDs(v.GetString("HUB_CHAIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid HUB_CHAIN_IDS: %w", err)
	}
	if len(hubIDs) == 0 {
		return nil, fmt.Errorf("HUB_CHAIN_IDS must list at least one chain")
	}

	sqlitePath, err := expandHome(v.GetString("SQLITE_PATH"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                 v.GetInt("PORT"),
		PostgresURL:          v.GetString("POSTGRES_URL"),
		SqlitePath:           sqlitePath,
		ChainRegistryFile:    v.GetString("CHAIN_REGISTRY_FILE"),
		ContractArtifactsDir: v.GetString("CONTRACT_ARTIFACTS_DIR"),
		HubChainIDs:          hubIDs,
		ReceiptMaxRetries:    v.GetInt("RECEIPT_MAX_RETRIES"),
		ReceiptPollInterval:  v.GetDuration("RECEIPT_POLL_INTERVAL"),
		FallbackGasLimit:     v.GetUint64("FALLBACK_GAS_LIMIT"),
		CrossChainGasLimit:   v.GetUint64("CROSS_CHAIN_GAS_LIMIT"),
		WorkerCount:          v.GetInt("WORKER_COUNT"),
		TaskBufferSize:       v.GetInt("TASK_BUFFER_SIZE"),
		ParallelSpokes:       v.GetBool("PARALLEL_SPOKES"),
		SpokeConcurrency:     v.GetInt("SPOKE_CONCURRENCY"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		v:                    v,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.ReceiptMaxRetries <= 0 {
		return fmt.Errorf("RECEIPT_MAX_RETRIES must be positive")
	}
	if c.ReceiptPollInterval <= 0 {
		return fmt.Errorf("RECEIPT_POLL_INTERVAL must be positive")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive")
	}
	if c.SpokeConcurrency <= 0 {
		return fmt.Errorf("SPOKE_CONCURRENCY must be positive")
	}
	return nil
}

// ServicePrivateKey reads the key at call time so a rotated secret is picked up by the next saga
func (c *Config) ServicePrivateKey() string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString("SERVICE_PRIVATE_KEY")
}

func parseChainIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		if id <= 0 {
			return nil, fmt.Errorf("chain id must be positive: %d", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
