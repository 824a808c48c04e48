package transport

import (
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	if _, err := a.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 16)
	n, err := b.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("read %q", buf[:n])
	}

	// Reverse direction is independent.
	if _, err := b.Write([]byte("world")); err != nil {
		t.Fatalf("write reverse: %v", err)
	}
	n, err = a.Read(buf)
	if err != nil || string(buf[:n]) != "world" {
		t.Fatalf("read reverse: %q %v", buf[:n], err)
	}
}

func TestPipeWriteDoesNotBlock(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	// No reader is waiting; all writes must return immediately.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if _, err := a.Write(make([]byte, 1024)); err != nil {
				t.Errorf("write %d: %v", i, err)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writes blocked without a reader")
	}
}

func TestPipeReadBlocksUntilWrite(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 8)
		n, err := b.Read(buf)
		if err != nil {
			t.Errorf("read: %v", err)
			return
		}
		got <- buf[:n]
	}()

	time.Sleep(20 * time.Millisecond)
	if _, err := a.Write([]byte("late")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case p := <-got:
		if string(p) != "late" {
			t.Fatalf("read %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read never woke after write")
	}
}

func TestPipeCloseUnblocksReader(t *testing.T) {
	a, b := Pipe()
	defer b.Close()

	errs := make(chan error, 1)
	go func() {
		_, err := b.Read(make([]byte, 8))
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	a.Close()

	select {
	case err := <-errs:
		if err != io.EOF {
			t.Fatalf("expected EOF, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader not unblocked by close")
	}
}

func TestPipeDrainsBufferedDataBeforeEOF(t *testing.T) {
	a, b := Pipe()
	if _, err := a.Write([]byte("leftover")); err != nil {
		t.Fatalf("write: %v", err)
	}
	a.Close()

	buf := make([]byte, 16)
	n, err := b.Read(buf)
	if err != nil || string(buf[:n]) != "leftover" {
		t.Fatalf("read buffered: %q %v", buf[:n], err)
	}
	if _, err := b.Read(buf); err != io.EOF {
		t.Fatalf("expected EOF after drain, got %v", err)
	}
}

func TestPipeWriteAfterClose(t *testing.T) {
	a, b := Pipe()
	b.Close()
	a.Close()
	if _, err := a.Write([]byte("x")); !errors.Is(err, ErrPipeClosed) {
		t.Fatalf("expected ErrPipeClosed, got %v", err)
	}
}

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     1 * time.Second,
		Jitter:       false,
	}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second,
		1 * time.Second,
	}
	for i, w := range want {
		got := NextBackoffDelay(cfg, i+1, nil)
		if got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(42))
	base := 200 * time.Millisecond
	for i := 0; i < 50; i++ {
		got := NextBackoffDelay(cfg, 2, rng)
		if got < base/2 || got > base*3/2 {
			t.Fatalf("jittered delay %v outside [%v, %v]", got, base/2, base*3/2)
		}
	}
}

func TestNextBackoffDelayZeroInitial(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 0, Multiplier: 2.0}
	if got := NextBackoffDelay(cfg, 3, nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
