package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
)

// TLSConfig names the PEM material for one endpoint. CAFile verifies the
// peer; CertFile/KeyFile identify this side. A server without CAFile skips
// client verification, a client without CertFile sends no certificate.
type TLSConfig struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

// ListenTLS opens a TLS listener. When cfg.CAFile is set, clients must
// present a certificate signed by that CA.
func ListenTLS(addr string, cfg TLSConfig) (net.Listener, error) {
	tlsCfg, err := cfg.build(true)
	if err != nil {
		return nil, err
	}
	ln, err := tls.Listen("tcp", addr, tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("transport: listen tls %s: %w", addr, err)
	}
	return ln, nil
}

// DialTLS connects like Dial and then runs the TLS handshake, with the same
// retry behavior across both stages.
func DialTLS(ctx context.Context, addr string, dial DialConfig, cfg TLSConfig) (net.Conn, error) {
	tlsCfg, err := cfg.build(false)
	if err != nil {
		return nil, err
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tls %s: %w", addr, err)
	}
	tlsCfg.ServerName = host

	conn, err := Dial(ctx, addr, dial)
	if err != nil {
		return nil, err
	}
	tc := tls.Client(conn, tlsCfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("transport: tls handshake with %s: %w", addr, err)
	}
	return tc, nil
}

func (c TLSConfig) build(server bool) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.CertFile != "" || c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("transport: load keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	} else if server {
		return nil, fmt.Errorf("transport: tls server requires cert_file and key_file")
	}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("transport: read ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: no certificates in %s", c.CAFile)
		}
		if server {
			cfg.ClientCAs = pool
			cfg.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			cfg.RootCAs = pool
		}
	}
	return cfg, nil
}
