package transport_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/danmuck/duplex/internal/testutil/tlstest"
	"github.com/danmuck/duplex/internal/transport"
)

func tlsPair(t *testing.T, mutual bool) (server transport.TLSConfig, client transport.TLSConfig) {
	t.Helper()
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir)
	serverCert, serverKey := ca.IssueServerCert(t, dir, "server")

	server = transport.TLSConfig{CertFile: serverCert, KeyFile: serverKey}
	client = transport.TLSConfig{CAFile: ca.CAFile()}
	if mutual {
		clientCert, clientKey := ca.IssueClientCert(t, dir, "client")
		server.CAFile = ca.CAFile()
		client.CertFile = clientCert
		client.KeyFile = clientKey
	}
	return server, client
}

func echoOnce(t *testing.T, ln net.Listener) <-chan error {
	t.Helper()
	errs := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			errs <- err
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			errs <- err
			return
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			errs <- err
			return
		}
		errs <- nil
	}()
	return errs
}

func TestTLSRoundTrip(t *testing.T) {
	serverCfg, clientCfg := tlsPair(t, false)

	ln, err := transport.ListenTLS("127.0.0.1:0", serverCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	serverErrs := echoOnce(t, ln)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := transport.DialTLS(ctx, ln.Addr().String(), transport.DefaultDialConfig(), clientCfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("over tls")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "over tls" {
		t.Fatalf("echo %q", buf[:n])
	}
	if err := <-serverErrs; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestTLSMutualAuth(t *testing.T) {
	serverCfg, clientCfg := tlsPair(t, true)

	ln, err := transport.ListenTLS("127.0.0.1:0", serverCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	serverErrs := echoOnce(t, ln)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := transport.DialTLS(ctx, ln.Addr().String(), transport.DefaultDialConfig(), clientCfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("mutual")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "mutual" {
		t.Fatalf("echo %q", buf[:n])
	}
	if err := <-serverErrs; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestTLSRejectsClientWithoutCert(t *testing.T) {
	serverCfg, clientCfg := tlsPair(t, true)
	// Strip the client identity; the server requires one.
	clientCfg.CertFile = ""
	clientCfg.KeyFile = ""

	ln, err := transport.ListenTLS("127.0.0.1:0", serverCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// Drive the handshake so the client observes the rejection.
			_, _ = conn.Read(make([]byte, 1))
			_ = conn.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dial := transport.DefaultDialConfig()
	dial.MaxAttempts = 1
	conn, err := transport.DialTLS(ctx, ln.Addr().String(), dial, clientCfg)
	if err == nil {
		// The handshake may complete lazily; the first read must fail.
		if _, rerr := conn.Read(make([]byte, 1)); rerr == nil {
			t.Fatal("connection usable without a client certificate")
		}
		_ = conn.Close()
	}
}

func TestTLSServerRequiresKeyPair(t *testing.T) {
	if _, err := transport.ListenTLS("127.0.0.1:0", transport.TLSConfig{}); err == nil {
		t.Fatal("expected error for server without a keypair")
	}
}
