package session

import (
	"github.com/rs/zerolog"

	"github.com/danmuck/duplex/internal/protocol/codec"
	"github.com/danmuck/duplex/internal/protocol/frame"
)

// Config tunes one session. Start from DefaultConfig and override; the zero
// Config has no logger and no limits.
type Config struct {
	// Codec names the body serialization, "json" or "cbor". Both peers
	// must agree.
	Codec string
	// MaxMessageBytes bounds one framed message on read and write.
	MaxMessageBytes uint64
	Logger          zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Codec:           "json",
		MaxMessageBytes: frame.DefaultLimits().MaxPayloadBytes,
		Logger:          zerolog.Nop(),
	}
}

func (c Config) limits() frame.Limits {
	if c.MaxMessageBytes == 0 {
		return frame.DefaultLimits()
	}
	return frame.Limits{MaxPayloadBytes: c.MaxMessageBytes}
}

func (c Config) codec() (codec.Codec, error) {
	return codec.ByName(c.Codec)
}
