package transport

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"
)

// DialConfig tunes Dial's connection attempts.
type DialConfig struct {
	ConnectTimeout time.Duration
	MaxAttempts    int
	Backoff        BackoffConfig
}

func DefaultDialConfig() DialConfig {
	return DialConfig{
		ConnectTimeout: 5 * time.Second,
		MaxAttempts:    5,
		Backoff:        DefaultBackoff(),
	}
}

// Listen opens a TCP listener; each accepted net.Conn is a duplex stream a
// session can bind as both reader and writer.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return ln, nil
}

// Dial connects to addr, retrying with backoff up to cfg.MaxAttempts.
// ctx cancellation aborts between attempts and during the in-flight dial.
func Dial(ctx context.Context, addr string, cfg DialConfig) (net.Conn, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	d := net.Dialer{Timeout: cfg.ConnectTimeout}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(NextBackoffDelay(cfg.Backoff, attempt, rng)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("transport: dial %s after %d attempts: %w", addr, cfg.MaxAttempts, lastErr)
}
