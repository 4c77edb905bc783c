package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"SmartPick/internal/api"
	"SmartPick/internal/logger"
	"SmartPick/internal/notifier"
	"SmartPick/internal/scheduler"
)

func main() {
	// A missing .env is fine; real env vars still apply.
	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), "console")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}

	root := &cobra.Command{
		Use:           "smartpick",
		Short:         "A-share volume anomaly screener with LLM enrichment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "path to the YAML config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled scans and serve results over HTTP (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	root.RunE = serve.RunE

	root.AddCommand(serve, &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan cycle and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), cfgPath, cmd)
		},
	}, &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the instrument list and update the cache file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRefresh(cmd.Context(), cfgPath, cmd)
		},
	})
	return root
}

func runServe(ctx context.Context, cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger.Info("SmartPick starting...")

	a := newApp(ctx, cfg)
	defer a.close()

	var tn *notifier.TelegramNotifier
	var push scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		push = tn
	}

	sched := scheduler.NewScheduler(ctx, a.scanner, push, a.recorder, a.results, a.universe)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("Telegram polling started")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(api.NewHandler(a.results), a.reg.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("API listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	if cfg.RunOnStart() {
		logger.Info("run_on_start enabled, executing first scan now")
		sched.RunAsync()
	}

	logger.Info("SmartPick is running (schedule %q). Press Ctrl+C to stop.", cfg.Schedule.Cron)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping...")
	case err = <-srvErr:
		err = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown: %v", serr)
	}
	logger.Info("SmartPick stopped")
	return err
}

func runOnce(ctx context.Context, cfgPath string, cmd *cobra.Command) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	a := newApp(ctx, cfg)
	defer a.close()

	sched := scheduler.NewScheduler(ctx, a.scanner, nil, a.recorder, a.results, a.universe)
	report, err := sched.RunNow()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "status=%s instruments=%d signals=%d candidates=%d file=%s\n",
		report.Status, report.Instruments, report.Signals, len(report.Result.Data), report.ResultFile)
	return nil
}

func runRefresh(ctx context.Context, cfgPath string, cmd *cobra.Command) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	a := newApp(ctx, cfg)
	defer a.close()

	n := len(a.universe.Refresh(ctx))
	if n == 0 {
		return errors.New("instrument list refresh failed")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d instruments into %s\n", n, cfg.Universe.CacheFile)
	return nil
}
