package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duplexd.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServerConfigDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := loadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := defaultServerConfig()
	if cfg != want {
		t.Fatalf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server_id = "edge-a"
listen_addr = "0.0.0.0:9000"
metrics_addr = "127.0.0.1:9100"
codec = "cbor"
max_message_bytes = 65536
tls_cert_file = "/etc/duplex/server.crt"
tls_key_file = "/etc/duplex/server.key"
tls_client_ca_file = "/etc/duplex/ca.crt"
`)
	cfg, err := loadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerID != "edge-a" {
		t.Fatalf("server_id %q", cfg.ServerID)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listen_addr %q", cfg.ListenAddr)
	}
	if cfg.Codec != "cbor" {
		t.Fatalf("codec %q", cfg.Codec)
	}
	if cfg.MaxMessageBytes != 65536 {
		t.Fatalf("max_message_bytes %d", cfg.MaxMessageBytes)
	}
	if cfg.MetricsAddr != "127.0.0.1:9100" {
		t.Fatalf("metrics_addr %q", cfg.MetricsAddr)
	}
	if !cfg.tlsEnabled() {
		t.Fatal("tls not enabled")
	}
	if cfg.TLS.CertFile != "/etc/duplex/server.crt" || cfg.TLS.KeyFile != "/etc/duplex/server.key" || cfg.TLS.CAFile != "/etc/duplex/ca.crt" {
		t.Fatalf("tls config %+v", cfg.TLS)
	}
}

func TestLoadServerConfigTLSKeyPairTogether(t *testing.T) {
	path := writeConfig(t, `tls_cert_file = "/etc/duplex/server.crt"`)
	if _, err := loadServerConfig(path); err == nil {
		t.Fatal("expected error for cert without key")
	}
}

func TestLoadServerConfigBlankValuesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
server_id = "  "
listen_addr = ""
`)
	cfg, err := loadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := defaultServerConfig()
	if cfg.ServerID != want.ServerID || cfg.ListenAddr != want.ListenAddr {
		t.Fatalf("blank values overrode defaults: %+v", cfg)
	}
}

func TestLoadServerConfigNegativeLimit(t *testing.T) {
	path := writeConfig(t, "max_message_bytes = -1\n")
	if _, err := loadServerConfig(path); err == nil {
		t.Fatal("expected error for negative max_message_bytes")
	}
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	if _, err := loadServerConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
