package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持 "5s" / "1m" 这类字符串写法的时长字段
type Duration time.Duration

// UnmarshalYAML 解析时长字符串
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转换为标准库 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`       // 日志级别
	File       string `yaml:"file"`        // 日志文件路径（可选）
	MaxSizeMB  int    `yaml:"max_size_mb"` // 单个日志文件上限（MB）
	MaxBackups int    `yaml:"max_backups"` // 保留的旧日志文件数量
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config 应用配置
type Config struct {
	Listen            string    `yaml:"listen"`             // HTTP 监听地址
	DataDir           string    `yaml:"data_dir"`           // badger 数据目录
	ReconcileInterval Duration  `yaml:"reconcile_interval"` // 后台对账扫描间隔
	StreamInterval    Duration  `yaml:"stream_interval"`    // websocket 推送间隔
	PollInterval      Duration  `yaml:"poll_interval"`      // price-watcher 轮询间隔
	ServerURL         string    `yaml:"server_url"`         // price-watcher 访问的服务地址
	Log               LogConfig `yaml:"log"`
}

var configPath = "config.yaml"

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configPath = path
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Listen:            ":8080",
		DataDir:           "data/ledger.badger",
		ReconcileInterval: Duration(5 * time.Minute),
		StreamInterval:    Duration(5 * time.Second),
		PollInterval:      Duration(5 * time.Second),
		ServerURL:         "http://127.0.0.1:8080",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Load 加载配置文件，缺失的字段使用默认值
func Load() (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 没有配置文件时使用默认配置
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data/ledger.badger"
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = Duration(5 * time.Minute)
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = Duration(5 * time.Second)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = Duration(5 * time.Second)
	}
	return cfg, nil
}
