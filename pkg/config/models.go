package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Store     StoreConfig
	Uploads   UploadsConfig
	Chat      ChatConfig
}

type ServerConfig struct {
	Address         string
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type ConnectionLimitConfig struct {
	MaxPerIP int `mapstructure:"maxPerIP"`
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

type ChatConfig struct {
	// FallbackRoom receives messages that arrive without a room field.
	FallbackRoom string `mapstructure:"fallbackRoom"`
	// HistoryLimit caps how many messages are replayed on join_room.
	HistoryLimit int `mapstructure:"historyLimit"`
}
