package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 本地檢視 API 的監聽位址
type ServerConfig struct {
	Address       string `mapstructure:"address"`
	Mode          string `mapstructure:"mode"`            // gin 模式：debug / release / test
	ViewReadLimit int64  `mapstructure:"view_read_limit"` // 本地檢視者送來的單一訊框上限
}

// UpstreamConfig 上游 AMA 伺服器
type UpstreamConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	StreamURL      string        `mapstructure:"stream_url"` // 空白時由 api_url 推導
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StreamConfig 事件串流連線的參數
type StreamConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	ReadLimit        int64         `mapstructure:"read_limit"` // 0 表示不限制
	Reconnect        bool          `mapstructure:"reconnect"`
	ReconnectMin     time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax     time.Duration `mapstructure:"reconnect_max"`
}

// CacheConfig 房間快取與快照載入
type CacheConfig struct {
	SnapshotTimeout time.Duration `mapstructure:"snapshot_timeout"`
	PendingLimit    int           `mapstructure:"pending_limit"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Sink  string `mapstructure:"sink"` // "stdout" 或 "file:/path"
}

// Load 讀取設定：.env → config.yaml（可省略）→ AMA_ 前綴的環境變數
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./pkg/config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SetDefaults 設定所有鍵的預設值，環境變數覆寫需要鍵已存在
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:8090")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.view_read_limit", 4096)

	v.SetDefault("upstream.api_url", "http://localhost:8080/api")
	v.SetDefault("upstream.stream_url", "")
	v.SetDefault("upstream.request_timeout", 10*time.Second)

	v.SetDefault("stream.handshake_timeout", 10*time.Second)
	v.SetDefault("stream.pong_wait", 60*time.Second)
	v.SetDefault("stream.ping_period", 54*time.Second)
	v.SetDefault("stream.write_wait", 10*time.Second)
	v.SetDefault("stream.read_limit", 0)
	v.SetDefault("stream.reconnect", true)
	v.SetDefault("stream.reconnect_min", time.Second)
	v.SetDefault("stream.reconnect_max", 30*time.Second)

	v.SetDefault("cache.snapshot_timeout", 15*time.Second)
	v.SetDefault("cache.pending_limit", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.sink", "stdout")
}
