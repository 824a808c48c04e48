package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/duplex/internal/transport"
)

type clientConfig struct {
	ServerAddr     string
	Codec          string
	ConnectTimeout time.Duration
	MaxAttempts    int
	TLS            *transport.TLSConfig
}

func defaultClientConfig() clientConfig {
	dial := transport.DefaultDialConfig()
	return clientConfig{
		ServerAddr:     "127.0.0.1:7530",
		Codec:          "json",
		ConnectTimeout: dial.ConnectTimeout,
		MaxAttempts:    dial.MaxAttempts,
	}
}

type clientFileConfig struct {
	ServerAddr     string `toml:"server_addr"`
	Codec          string `toml:"codec"`
	ConnectTimeout string `toml:"connect_timeout"`
	MaxAttempts    int    `toml:"max_connect_attempts"`
	TLSCAFile      string `toml:"tls_ca_file"`
	TLSCertFile    string `toml:"tls_cert_file"`
	TLSKeyFile     string `toml:"tls_key_file"`
}

func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw clientFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load duplexctl config: %w", err)
	}

	if meta.IsDefined("server_addr") {
		if addr := strings.TrimSpace(raw.ServerAddr); addr != "" {
			cfg.ServerAddr = addr
		}
	}
	if meta.IsDefined("codec") {
		cfg.Codec = strings.TrimSpace(raw.Codec)
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}
	if meta.IsDefined("max_connect_attempts") {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if meta.IsDefined("tls_ca_file") || meta.IsDefined("tls_cert_file") || meta.IsDefined("tls_key_file") {
		tls := transport.TLSConfig{
			CAFile:   strings.TrimSpace(raw.TLSCAFile),
			CertFile: strings.TrimSpace(raw.TLSCertFile),
			KeyFile:  strings.TrimSpace(raw.TLSKeyFile),
		}
		if (tls.CertFile == "") != (tls.KeyFile == "") {
			return clientConfig{}, fmt.Errorf("load duplexctl config: tls_cert_file and tls_key_file must be set together")
		}
		cfg.TLS = &tls
	}

	return cfg, nil
}

func (c clientConfig) dialConfig() transport.DialConfig {
	dial := transport.DefaultDialConfig()
	dial.ConnectTimeout = c.ConnectTimeout
	dial.MaxAttempts = c.MaxAttempts
	return dial
}
