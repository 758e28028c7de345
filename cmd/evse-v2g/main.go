// Command evse-v2g is a reference ISO 15118-20 SECC.
//
// It accepts vehicle TLS connections, runs one protocol session per
// connection and reports session feedback in its log. An optional console
// stands in for the charger's power electronics by sending control events.
//
// Usage:
//
//	evse-v2g [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-listen string        Listen address (overrides listen.address)
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Capture frames, messages and states to a .v2glog file
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-state string         State file keeping paused sessions across restarts
//	-dev-pki-dir string   Write the generated development PKI to this directory
//	-interactive          Start the control console
//
// Examples:
//
//	# Development SECC with generated certificates and a console
//	evse-v2g -interactive -dev-pki-dir /tmp/v2g-pki
//
//	# Production style configuration with metrics
//	evse-v2g -config /etc/evse/secc.yaml -metrics-addr :9100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evse-go/iso15118/cmd/evse-v2g/interactive"
	"github.com/evse-go/iso15118/pkg/config"
	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/log"
	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/persistence"
	"github.com/evse-go/iso15118/pkg/session"
	"github.com/evse-go/iso15118/pkg/transport"
)

// Flags holds the command-line settings.
type Flags struct {
	ConfigFile  string
	Listen      string
	LogLevel    string
	ProtocolLog string
	MetricsAddr string
	StateFile   string
	DevPKIDir   string
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.Listen, "listen", "", "Listen address (overrides listen.address)")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Capture frames, messages and states to a .v2glog file")
	flag.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.StringVar(&flags.StateFile, "state", "", "State file keeping paused sessions across restarts")
	flag.StringVar(&flags.DevPKIDir, "dev-pki-dir", "", "Write the generated development PKI to this directory")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the control console")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "evse-v2g: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags override file values.
func applyFlags(cfg *config.Config) {
	if flags.Listen != "" {
		cfg.Listen.Address = flags.Listen
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	if flags.ProtocolLog != "" {
		cfg.Log.Protocol = flags.ProtocolLog
	}
	if flags.MetricsAddr != "" {
		cfg.Metrics.Address = flags.MetricsAddr
	}
	if flags.StateFile != "" {
		cfg.State.File = flags.StateFile
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var console *interactive.Console
	var logOut io.Writer = os.Stderr

	level, _ := config.ParseLevel(cfg.Log.Level)

	// The console needs the manager and the manager needs the logger, so
	// the console is attached to a late-bound controller.
	ctrl := &lateController{}
	if flags.Interactive {
		c, err := interactive.New(ctrl)
		if err != nil {
			return err
		}
		console = c
		logOut = console.Stderr()
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	logger.Info("ISO 15118-20 SECC starting", "evse_id", cfg.EVSE.ID, "listen", cfg.Listen.Address)

	tlsConfig, err := loadTLS(cfg, logger)
	if err != nil {
		return err
	}

	protocolLogger, closeProtocolLog, err := openProtocolLog(cfg.Log.Protocol, level, logger)
	if err != nil {
		return err
	}
	defer closeProtocolLog()

	sessionConfig, err := cfg.SessionConfig()
	if err != nil {
		return err
	}
	sessionConfig.Logger = logger
	sessionConfig.ProtocolLogger = protocolLogger
	sessionConfig.Callbacks = feedbackCallbacks(logger)

	var store *persistence.StateStore
	if cfg.State.File != "" {
		store = persistence.NewStateStore(cfg.State.File)
		if _, err := store.Load(); err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		sessionConfig.PauseStore = store.PauseStore()
	} else {
		sessionConfig.PauseStore = session.NewMemoryPauseStore()
	}

	manager := session.NewManager(sessionConfig)
	manager.OnFinish(func(s *session.Session) {
		logger.Info("session finished", "conn_id", s.ID(), "outcome", s.Outcome(), "error", s.Err())
		if store == nil {
			return
		}
		rec := persistence.SessionRecord{
			ConnectionID: s.ID(),
			SessionID:    s.SessionID(),
			Outcome:      s.Outcome(),
			EndedAt:      time.Now(),
		}
		if err := s.Err(); err != nil {
			rec.Error = err.Error()
		}
		if err := store.Record(rec); err != nil {
			logger.Warn("failed to record session", "error", err)
		}
	})
	ctrl.set(manager)

	server, err := transport.NewServer(transport.ServerConfig{
		TLSConfig:      tlsConfig,
		Address:        cfg.Listen.Address,
		MaxConnections: cfg.Listen.MaxConnections,
		Handler:        manager,
		Logger:         protocolLogger,
		Log:            logger,
	})
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()

	if cfg.Metrics.Address != "" {
		srv := serveMetrics(cfg.Metrics.Address, logger)
		defer srv.Close()
	}

	if console != nil {
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}
	return nil
}

// openProtocolLog opens the capture file, if any. At debug level protocol
// events are mirrored into the operational log as well.
func openProtocolLog(path string, level slog.Level, logger *slog.Logger) (log.Logger, func(), error) {
	var mirror log.Logger
	if level <= slog.LevelDebug {
		mirror = log.NewSlogAdapter(logger.With("component", "protocol"))
	}
	if path == "" {
		return log.Tee(mirror), func() {}, nil
	}

	fl, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("capturing protocol log", "path", fl.Path())

	closeFn := func() {
		stored, dropped := fl.Written()
		logger.Info("protocol log closed", "path", fl.Path(), "events", stored, "dropped", dropped)
		if err := fl.Err(); err != nil {
			logger.Warn("protocol log stopped early", "error", err)
		}
		fl.Close()
	}
	return log.Tee(fl, mirror), closeFn, nil
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func feedbackCallbacks(logger *slog.Logger) feedback.Callbacks {
	return feedback.Callbacks{
		Signal: func(s feedback.Signal) {
			logger.Info("feedback signal", "signal", s)
		},
		ResponseCode: func(t message.Type, code message.ResponseCode) {
			if code.IsFailure() {
				logger.Warn("failure response", "type", t, "code", code)
			}
		},
		EVCCID: func(id string) {
			logger.Info("vehicle identified", "evccid", id)
		},
		SelectedProtocol: func(ns string) {
			logger.Info("protocol selected", "namespace", ns)
		},
		SelectedServices: func(energy message.SelectedService, vas []message.SelectedService) {
			logger.Info("services selected", "energy", energy.ServiceID, "parameter_set", energy.ParameterSetID, "vas", len(vas))
		},
		DCPreChargeTargetVoltage: func(v float64) {
			logger.Debug("precharge target", "voltage", v)
		},
		DCMaxLimits: func(l feedback.DCMaximumLimits) {
			logger.Info("vehicle DC limits", "voltage", l.Voltage, "current", l.Current, "power", l.Power)
		},
		DCChargeLoopReq: func(req *message.DCChargeLoopRequest) {
			logger.Debug("DC charge loop", "present_voltage", req.EVPresentVoltage)
		},
	}
}

// lateController forwards to the session manager once it exists.
type lateController struct {
	m *session.Manager
}

func (c *lateController) set(m *session.Manager) { c.m = m }

func (c *lateController) Broadcast(ev control.Event) error {
	if c.m == nil {
		return session.ErrNoSession
	}
	return c.m.Broadcast(ev)
}

func (c *lateController) Push(id string, ev control.Event) error {
	if c.m == nil {
		return session.ErrNoSession
	}
	return c.m.Push(id, ev)
}

func (c *lateController) ActiveIDs() []string {
	if c.m == nil {
		return nil
	}
	return c.m.ActiveIDs()
}
