package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nvats/spliteasy/internal/realtime"
	"github.com/nvats/spliteasy/internal/syncer"
)

// watchView reports which view the watcher is "showing". With --group the
// watcher follows one group; otherwise it behaves like an open group list.
type watchView struct {
	groupID string
}

func (v watchView) CurrentGroupID() string { return v.groupID }
func (v watchView) GroupListActive() bool  { return v.groupID == "" }

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay online: apply realtime changes and replay queued work",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.remote == nil {
			return fmt.Errorf("watch requires remote.url to be configured")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if a.cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
			go func() {
				slog.Info("serving metrics", "addr", a.cfg.MetricsAddr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("metrics server failed", "error", err)
				}
			}()
			defer srv.Close()
		}

		groupID, _ := cmd.Flags().GetString("group")
		listener := realtime.NewListener(a.stream, a.engine, a.store, a.mapper,
			watchView{groupID: groupID},
			&logNotifier{logger: slog.Default()},
			realtime.Options{
				QueueSize: a.cfg.RealtimeQueueSize,
				Metrics:   a.metrics,
			})
		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("failed to start realtime listener: %w", err)
		}
		defer listener.Stop()

		go a.engine.RunReconnectLoop(ctx, syncer.ReconnectConfig{
			BackoffMin: a.cfg.BackoffMin,
			BackoffMax: a.cfg.BackoffMax,
		})

		fmt.Println("Watching for changes. Ctrl-C to stop.")
		<-ctx.Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().String("group", "", "group ID to follow (empty follows the whole group list)")
	rootCmd.AddCommand(watchCmd)
}
