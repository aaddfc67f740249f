package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Logger    Logger
	Downloads DownloadsConfig
	Engine    EngineConfig
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

// DownloadsConfig bounds the job engine: pool size, retry budget and the
// resource thresholds checked at admission.
type DownloadsConfig struct {
	Dir            string
	MaxConcurrent  int
	QueueSize      int
	MaxRetries     int
	MaxCPUPercent  float64
	MaxMemPercent  float64
	MaxDiskPercent float64
	RetryUnit      time.Duration
}

type EngineConfig struct {
	YtdlpPath  string
	FFmpegPath string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Downloads.Dir == "" {
		c.Downloads.Dir = "downloads"
	}
	if c.Downloads.MaxConcurrent <= 0 {
		c.Downloads.MaxConcurrent = 3
	}
	if c.Downloads.QueueSize <= 0 {
		c.Downloads.QueueSize = 256
	}
	if c.Downloads.MaxRetries <= 0 {
		c.Downloads.MaxRetries = 5
	}
	if c.Downloads.MaxCPUPercent <= 0 {
		c.Downloads.MaxCPUPercent = 80
	}
	if c.Downloads.MaxMemPercent <= 0 {
		c.Downloads.MaxMemPercent = 80
	}
	if c.Downloads.MaxDiskPercent <= 0 {
		c.Downloads.MaxDiskPercent = 90
	}
	if c.Downloads.RetryUnit <= 0 {
		c.Downloads.RetryUnit = time.Second
	}
	if c.Engine.YtdlpPath == "" {
		c.Engine.YtdlpPath = "yt-dlp"
	}
	if c.Engine.FFmpegPath == "" {
		c.Engine.FFmpegPath = "ffmpeg"
	}
}
