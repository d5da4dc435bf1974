// Package config loads mining parameters from flags, environment and an
// optional config file.
package config

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/yiqi-017/powseal/crypto"
)

// EnvPrefix 环境变量前缀，例如 POWSEAL_DIFFICULTY
const EnvPrefix = "POWSEAL"

// 配置键，与 cmd/node 的 flag 名一致
const (
	KeyDifficulty   = "difficulty"
	KeyBlocks       = "blocks"
	KeyMaxAttempts  = "max-attempts"
	KeyWorkers      = "workers"
	KeyLogLevel     = "log-level"
	KeyTransactions = "tx"
	KeyMetricsAddr  = "metrics-addr"
)

// MineConfig 挖矿参数
type MineConfig struct {
	Difficulty   uint32   `mapstructure:"difficulty"`
	Blocks       int      `mapstructure:"blocks"`
	MaxAttempts  uint64   `mapstructure:"max-attempts"`
	Workers      int      `mapstructure:"workers"`
	LogLevel     string   `mapstructure:"log-level"`
	Transactions []string `mapstructure:"tx"`
	MetricsAddr  string   `mapstructure:"metrics-addr"`
}

// SetDefaults 写入默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDifficulty, 2)
	v.SetDefault(KeyBlocks, 2)
	v.SetDefault(KeyMaxAttempts, 0)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMetricsAddr, "")
}

// Load 读取配置文件（可选）、环境变量，并校验
func Load(v *viper.Viper, configFile string) (*MineConfig, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	}

	var cfg MineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 拒绝无法终止的难度和无意义的 worker 数
func (c *MineConfig) Validate() error {
	if c.Difficulty > crypto.DigestSize {
		return errors.Errorf("difficulty %d exceeds digest length %d", c.Difficulty, crypto.DigestSize)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Blocks < 1 {
		return errors.Errorf("blocks must be at least 1, got %d", c.Blocks)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Records 返回交易字节；未配置时返回 nil
func (c *MineConfig) Records() [][]byte {
	if len(c.Transactions) == 0 {
		return nil
	}
	out := make([][]byte, len(c.Transactions))
	for i, tx := range c.Transactions {
		out[i] = []byte(tx)
	}
	return out
}

func (c *MineConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, errors.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}
