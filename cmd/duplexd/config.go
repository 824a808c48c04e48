package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/duplex/internal/transport"
)

type serverConfig struct {
	ServerID        string
	ListenAddr      string
	MetricsAddr     string
	Codec           string
	MaxMessageBytes uint64
	TLS             transport.TLSConfig
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		ServerID:   "duplexd",
		ListenAddr: "127.0.0.1:7530",
		Codec:      "json",
	}
}

type serverFileConfig struct {
	ServerID        string `toml:"server_id"`
	ListenAddr      string `toml:"listen_addr"`
	MetricsAddr     string `toml:"metrics_addr"`
	Codec           string `toml:"codec"`
	MaxMessageBytes int64  `toml:"max_message_bytes"`
	TLSCertFile     string `toml:"tls_cert_file"`
	TLSKeyFile      string `toml:"tls_key_file"`
	TLSClientCAFile string `toml:"tls_client_ca_file"`
}

func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()

	var raw serverFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serverConfig{}, fmt.Errorf("load duplexd config: %w", err)
	}

	if meta.IsDefined("server_id") {
		if id := strings.TrimSpace(raw.ServerID); id != "" {
			cfg.ServerID = id
		}
	}
	if meta.IsDefined("listen_addr") {
		if addr := strings.TrimSpace(raw.ListenAddr); addr != "" {
			cfg.ListenAddr = addr
		}
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("codec") {
		cfg.Codec = strings.TrimSpace(raw.Codec)
	}
	if meta.IsDefined("max_message_bytes") {
		if raw.MaxMessageBytes < 0 {
			return serverConfig{}, fmt.Errorf("load duplexd config: negative max_message_bytes")
		}
		cfg.MaxMessageBytes = uint64(raw.MaxMessageBytes)
	}
	cfg.TLS = transport.TLSConfig{
		CAFile:   strings.TrimSpace(raw.TLSClientCAFile),
		CertFile: strings.TrimSpace(raw.TLSCertFile),
		KeyFile:  strings.TrimSpace(raw.TLSKeyFile),
	}
	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return serverConfig{}, fmt.Errorf("load duplexd config: tls_cert_file and tls_key_file must be set together")
	}

	return cfg, nil
}

func (c serverConfig) tlsEnabled() bool {
	return c.TLS.CertFile != ""
}
