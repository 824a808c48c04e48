package main

import (
	"context"
	"flag"
	"net"

	"github.com/google/uuid"

	"github.com/danmuck/duplex/internal/api"
	"github.com/danmuck/duplex/internal/logging"
	"github.com/danmuck/duplex/internal/protocol/value"
	"github.com/danmuck/duplex/internal/session"
	"github.com/danmuck/duplex/internal/transport"
)

func main() {
	logging.ConfigureRuntime()
	logger := logging.New("duplexctl")

	configPath := flag.String("config", "", "path to duplexctl config.toml")
	addr := flag.String("addr", "", "server address override")
	marker := flag.String("marker", "", "ping marker (default: random)")
	status := flag.Bool("status", false, "request server status after ping")
	verbose := flag.Bool("verbose", false, "ask for verbose status details")
	flag.Parse()

	cfg := defaultClientConfig()
	if *configPath != "" {
		loaded, err := loadClientConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *marker == "" {
		*marker = uuid.NewString()
	}

	var (
		conn net.Conn
		err  error
	)
	if cfg.TLS != nil {
		conn, err = transport.DialTLS(context.Background(), cfg.ServerAddr, cfg.dialConfig(), *cfg.TLS)
	} else {
		conn, err = transport.Dial(context.Background(), cfg.ServerAddr, cfg.dialConfig())
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("dial failed")
	}

	sessCfg := session.DefaultConfig()
	sessCfg.Codec = cfg.Codec
	sessCfg.Logger = logger
	sess, err := session.New(sessCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("session setup failed")
	}
	sess.OnError(func(err error) {
		logger.Warn().Err(err).Msg("session error")
	})
	defer sess.Close()

	if err := sess.Bind(conn, conn); err != nil {
		logger.Fatal().Err(err).Msg("bind failed")
	}

	ping := session.Send(sess, api.Ping, &api.PingRequest{Marker: *marker})
	res := ping.Wait()
	if !res.Ok() {
		logger.Fatal().Err(res.Err).Msg("ping failed")
	}
	if res.Response.Marker != *marker {
		logger.Fatal().
			Str("sent", *marker).
			Str("got", res.Response.Marker).
			Msg("ping marker mismatch")
	}
	logger.Info().
		Str("server", res.Response.ServerID).
		Str("marker", res.Response.Marker).
		Msg("pong")

	if *status {
		req := &api.StatusRequest{}
		if *verbose {
			req.Verbose = verbose
		}
		st := session.Send(sess, api.Status, req).Wait()
		if !st.Ok() {
			logger.Fatal().Err(st.Err).Msg("status failed")
		}
		entry := logger.Info().
			Str("server", st.Response.ServerID).
			Float64("uptime_seconds", st.Response.UptimeSeconds).
			Int64("sessions", st.Response.Sessions).
			Strs("codecs", st.Response.Codecs)
		for _, m := range st.Response.Details.Members() {
			if s, err := m.Value.AsString(); err == nil {
				entry = entry.Str("detail_"+m.Key, s)
			}
		}
		entry.Msg("status")
	}

	fields := value.NewObject()
	fields.Set("marker", value.String(*marker))
	_ = session.SendEvent(sess, api.LogEventType, &api.LogEvent{
		Level:   "info",
		Message: "duplexctl run complete",
		Fields:  fields,
	})
}
