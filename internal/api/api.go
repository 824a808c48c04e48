// Package api declares the message types spoken between duplexd and
// duplexctl. It doubles as the reference for how a protocol binds concrete
// types to the engine: one descriptor per type, registered once.
package api

import (
	"github.com/danmuck/duplex/internal/protocol"
	"github.com/danmuck/duplex/internal/protocol/schema"
	"github.com/danmuck/duplex/internal/protocol/value"
)

// PingRequest round-trips a caller-chosen marker.
type PingRequest struct {
	Marker string
}

type PingResponse struct {
	Marker   string
	ServerID string
}

// StatusRequest asks the peer for a self-description. Verbose is optional;
// absent means terse.
type StatusRequest struct {
	Verbose *bool
}

type StatusResponse struct {
	ServerID      string
	UptimeSeconds float64
	Sessions      int64
	Codecs        []string
	Details       *value.Object
}

// LogEvent is a one-way notification; peers without a handler drop it.
type LogEvent struct {
	Level   string
	Message string
	Fields  *value.Object
}

var PingRequestType = schema.NewTypeInfo[PingRequest]("ping",
	schema.StringField("marker", func(m *PingRequest) *string { return &m.Marker }),
)

var PingResponseType = schema.NewTypeInfo[PingResponse]("ping",
	schema.StringField("marker", func(m *PingResponse) *string { return &m.Marker }),
	schema.StringField("server_id", func(m *PingResponse) *string { return &m.ServerID }),
)

var StatusRequestType = schema.NewTypeInfo[StatusRequest]("status",
	schema.OptBoolField("verbose", func(m *StatusRequest) **bool { return &m.Verbose }),
)

var StatusResponseType = schema.NewTypeInfo[StatusResponse]("status",
	schema.StringField("server_id", func(m *StatusResponse) *string { return &m.ServerID }),
	schema.FloatField("uptime_seconds", func(m *StatusResponse) *float64 { return &m.UptimeSeconds }),
	schema.IntField("sessions", func(m *StatusResponse) *int64 { return &m.Sessions }),
	schema.StringArrayField("codecs", func(m *StatusResponse) *[]string { return &m.Codecs }),
	schema.ObjectField("details", func(m *StatusResponse) **value.Object { return &m.Details }),
)

var LogEventType = schema.NewTypeInfo[LogEvent]("log",
	schema.StringField("level", func(m *LogEvent) *string { return &m.Level }),
	schema.StringField("message", func(m *LogEvent) *string { return &m.Message }),
	schema.ObjectField("fields", func(m *LogEvent) **value.Object { return &m.Fields }),
)

// Request/response pairings used with session.Send and session.HandleRequest.
var (
	Ping   = schema.NewRequestType(PingRequestType, PingResponseType)
	Status = schema.NewRequestType(StatusRequestType, StatusResponseType)
)

// Registry holds every type of this protocol, for tooling that needs
// discriminator lookup rather than the typed descriptors above.
var Registry = schema.NewRegistry()

func init() {
	Registry.MustRegister(protocol.KindRequest, PingRequestType)
	Registry.MustRegister(protocol.KindResponse, PingResponseType)
	Registry.MustRegister(protocol.KindRequest, StatusRequestType)
	Registry.MustRegister(protocol.KindResponse, StatusResponseType)
	Registry.MustRegister(protocol.KindEvent, LogEventType)
}
