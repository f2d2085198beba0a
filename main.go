// sserver-status — Shadowsocks server connectivity monitor.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/RainbowCandyX/sserver-status/internal/checker"
	"github.com/RainbowCandyX/sserver-status/internal/config"
	"github.com/RainbowCandyX/sserver-status/internal/events"
	"github.com/RainbowCandyX/sserver-status/internal/scheduler"
	"github.com/RainbowCandyX/sserver-status/internal/server"
	"github.com/RainbowCandyX/sserver-status/internal/storage"
	"github.com/RainbowCandyX/sserver-status/internal/store"
)

const version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:          "sserver-status",
		Short:        "Shadowsocks server connectivity monitor",
		SilenceUsage: true,
	}

	var (
		configPath string
		listenFlag string
		dbPath     string
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor and its web API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, listenFlag, dbPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", "", "Override listen address (e.g. 0.0.0.0:3000)")
	serveCmd.Flags().StringVarP(&dbPath, "db", "d", "", "Override SQLite database path")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print sserver-status version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sserver-status %s\n", version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(configPath, listenFlag, dbFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if listenFlag != "" {
		cfg.Listen = listenFlag
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	log.Printf("[db] opened %s", cfg.DBPath)

	// retention pruning also runs once at startup
	if n, err := db.PruneOlderThan(7); err != nil {
		log.Printf("[db] startup prune failed: %v", err)
	} else if n > 0 {
		log.Printf("[db] pruned %d old results on startup", n)
	}

	st := store.New(cfg.CheckIntervalSecs)
	for _, srv := range cfg.BuildServers() {
		st.UpsertServer(srv)
		history, err := db.LoadHistory(srv.ID, store.MaxHistory)
		if err != nil {
			log.Printf("[db] failed to load history for %s: %v", srv.ID, err)
			continue
		}
		if len(history) > 0 {
			st.WarmHistory(srv.ID, history)
		}
	}

	// freeze generated server IDs into the config file
	if err := config.Persist(configPath, cfg, st.Servers(), st.Interval()); err != nil {
		log.Printf("[config] failed to persist on startup: %v", err)
	}

	bus := events.New(st.ComputeStatuses)
	chk := checker.New(
		time.Duration(cfg.TCPTimeoutSecs)*time.Second,
		time.Duration(cfg.SSTimeoutSecs)*time.Second,
		cfg.TestTarget,
	)

	sched := scheduler.New(st, db, bus, chk.Check, clock.New())
	sched.Start()
	defer sched.Stop()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	server.New(cfg, configPath, st, db, bus, chk).Register(engine)

	httpSrv := &http.Server{Addr: cfg.Listen, Handler: engine}

	fmt.Printf("  ✓ sserver-status %s\n", version)
	fmt.Printf("  ✓ Listening on http://%s\n", cfg.Listen)
	fmt.Printf("  ✓ Monitoring %d server(s) every %ds\n\n", len(st.Servers()), st.Interval())

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		fmt.Println("\n  → Shutting down gracefully…")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
		return nil
	}
}
