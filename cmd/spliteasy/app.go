package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nvats/spliteasy/internal/config"
	"github.com/nvats/spliteasy/internal/metrics"
	"github.com/nvats/spliteasy/internal/realtime"
	"github.com/nvats/spliteasy/internal/remote"
	"github.com/nvats/spliteasy/internal/schema"
	"github.com/nvats/spliteasy/internal/storage/sqlite"
	"github.com/nvats/spliteasy/internal/syncer"
	"github.com/nvats/spliteasy/pkg/logging"
)

// app wires the full stack for one command invocation.
type app struct {
	cfg     *config.Config
	store   *sqlite.Store
	remote  *remote.Store // nil in local-only mode
	mapper  *schema.Mapper
	engine  *syncer.Engine
	stream  realtime.Stream // nil in local-only mode
	metrics *metrics.Sync
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		logging.SetupFile(cfg.LogFile, level)
	} else {
		logging.SetupWithLevel(level)
	}

	store, err := sqlite.New(cfg.DBPath, slog.Default())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		store:   store,
		metrics: metrics.NewSync(prometheus.DefaultRegisterer),
	}

	online := func() bool { return false }
	if cfg.RemoteURL != "" {
		client := remote.NewPostgRESTClient(cfg.RemoteURL, cfg.APIKey, slog.Default())
		a.mapper = schema.NewMapper(remote.Probe(client), slog.Default())
		a.remote = remote.NewStore(client, a.mapper, slog.Default())
		a.stream = realtime.NewWebsocketStream(cfg.RemoteURL, cfg.APIKey, slog.Default())
		online = onlineProbe(cfg.RemoteURL)
	} else {
		a.mapper = schema.NewMapper(nil, slog.Default())
	}

	a.engine = syncer.NewEngine(store, store, syncer.Options{
		Remote:    remoteOrNil(a.remote),
		Online:    online,
		Notifier:  &logNotifier{logger: slog.Default()},
		Metrics:   a.metrics,
		PaceDelay: cfg.PaceDelay,
	})
	return a, nil
}

// remoteOrNil avoids handing the engine a non-nil interface wrapping a nil
// pointer when no remote is configured.
func remoteOrNil(s *remote.Store) syncer.RemoteStore {
	if s == nil {
		return nil
	}
	return s
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close local store", "error", err)
	}
}

// onlineProbe is the connectivity signal handed to the engine: the remote is
// considered online when its REST root answers at all (any HTTP status).
func onlineProbe(baseURL string) func() bool {
	client := &http.Client{Timeout: 5 * time.Second}
	return func() bool {
		req, err := http.NewRequest(http.MethodHead, baseURL+"/rest/v1/", nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// logNotifier is the CLI's UI-collaborator hook: notifications become log
// lines, and view refreshes are meaningless outside watch mode.
type logNotifier struct {
	logger  *slog.Logger
	refresh func()
}

func (n *logNotifier) Notify(message string, severity syncer.Severity) {
	switch severity {
	case syncer.SeverityError:
		n.logger.Error(message)
	case syncer.SeverityInfo:
		n.logger.Info(message)
	default:
		n.logger.Info(message)
	}
}

func (n *logNotifier) RefreshCurrentGroupView() {
	if n.refresh != nil {
		n.refresh()
	}
}
