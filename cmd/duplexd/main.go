package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/duplex/internal/api"
	"github.com/danmuck/duplex/internal/logging"
	"github.com/danmuck/duplex/internal/observability"
	"github.com/danmuck/duplex/internal/protocol/value"
	"github.com/danmuck/duplex/internal/session"
	"github.com/danmuck/duplex/internal/transport"
)

func main() {
	logging.ConfigureRuntime()
	logger := logging.New("duplexd")

	configPath := flag.String("config", "", "path to duplexd config.toml")
	listenAddr := flag.String("listen", "", "listen address override")
	flag.Parse()

	cfg := defaultServerConfig()
	if *configPath != "" {
		loaded, err := loadServerConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server{cfg: cfg, log: logger, start: time.Now()}
	if err := srv.serve(ctx); err != nil {
		logger.Fatal().Err(err).Msg("duplexd stopped")
	}
	logger.Info().Msg("duplexd stopped")
}

type server struct {
	cfg      serverConfig
	log      zerolog.Logger
	start    time.Time
	sessions atomic.Int64
}

func (srv *server) serve(ctx context.Context) error {
	var ln net.Listener
	var err error
	if srv.cfg.tlsEnabled() {
		ln, err = transport.ListenTLS(srv.cfg.ListenAddr, srv.cfg.TLS)
	} else {
		ln, err = transport.Listen(srv.cfg.ListenAddr)
	}
	if err != nil {
		return err
	}
	srv.log.Info().
		Str("addr", srv.cfg.ListenAddr).
		Str("codec", srv.cfg.Codec).
		Bool("tls", srv.cfg.tlsEnabled()).
		Msg("listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	if srv.cfg.MetricsAddr != "" {
		observability.RegisterMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: srv.cfg.MetricsAddr, Handler: mux}
		g.Go(func() error {
			srv.log.Info().Str("addr", srv.cfg.MetricsAddr).Msg("metrics listening")
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			go srv.handle(conn)
		}
	})
	return g.Wait()
}

func (srv *server) handle(conn net.Conn) {
	log := srv.log.With().Str("peer", conn.RemoteAddr().String()).Logger()

	sessCfg := session.DefaultConfig()
	sessCfg.Codec = srv.cfg.Codec
	if srv.cfg.MaxMessageBytes > 0 {
		sessCfg.MaxMessageBytes = srv.cfg.MaxMessageBytes
	}
	sessCfg.Logger = log

	sess, err := session.New(sessCfg)
	if err != nil {
		log.Error().Err(err).Msg("session setup failed")
		_ = conn.Close()
		return
	}
	sess.OnError(func(err error) {
		observability.RecordSessionError(srv.cfg.ServerID)
		log.Warn().Err(err).Msg("session error")
	})
	srv.register(sess, log)

	srv.sessions.Add(1)
	observability.RecordSessionOpened(srv.cfg.ServerID)
	defer func() {
		srv.sessions.Add(-1)
		observability.RecordSessionClosed(srv.cfg.ServerID)
	}()

	if err := sess.Bind(conn, conn); err != nil {
		log.Error().Err(err).Msg("bind failed")
		_ = conn.Close()
		return
	}
	log.Info().Msg("peer connected")
	<-sess.Done()
	log.Info().Msg("peer disconnected")
}

func (srv *server) register(sess *session.Session, log zerolog.Logger) {
	must := func(err error) {
		if err != nil {
			log.Fatal().Err(err).Msg("handler registration failed")
		}
	}

	must(session.HandleRequest(sess, api.Ping, func(req *api.PingRequest) (*api.PingResponse, error) {
		start := time.Now()
		resp := &api.PingResponse{Marker: req.Marker, ServerID: srv.cfg.ServerID}
		observability.RecordRequest(srv.cfg.ServerID, "ping", true, time.Since(start))
		return resp, nil
	}))
	must(session.HandleSent(sess, api.Ping, func(_ *api.PingResponse, err error) {
		if err != nil {
			observability.RecordRequest(srv.cfg.ServerID, "ping", false, 0)
		}
	}))

	must(session.HandleRequest(sess, api.Status, func(req *api.StatusRequest) (*api.StatusResponse, error) {
		start := time.Now()
		resp := &api.StatusResponse{
			ServerID:      srv.cfg.ServerID,
			UptimeSeconds: time.Since(srv.start).Seconds(),
			Sessions:      srv.sessions.Load(),
			Codecs:        []string{"json", "cbor"},
			Details:       value.NewObject(),
		}
		if req.Verbose != nil && *req.Verbose {
			resp.Details.Set("listen_addr", value.String(srv.cfg.ListenAddr))
			resp.Details.Set("session_id", value.String(sess.ID()))
		}
		observability.RecordRequest(srv.cfg.ServerID, "status", true, time.Since(start))
		return resp, nil
	}))
	must(session.HandleSent(sess, api.Status, func(_ *api.StatusResponse, err error) {
		if err != nil {
			observability.RecordRequest(srv.cfg.ServerID, "status", false, 0)
		}
	}))

	must(session.HandleEvent(sess, api.LogEventType, func(ev *api.LogEvent) {
		observability.RecordEvent(srv.cfg.ServerID, "log")
		entry := log.Info()
		if ev.Level == "error" {
			entry = log.Error()
		}
		entry.Str("remote_level", ev.Level).Int("fields", ev.Fields.Len()).Msg(ev.Message)
	}))
}
