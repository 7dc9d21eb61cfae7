package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"intradaytick/config"
	"intradaytick/db"
	"intradaytick/metrics"
	"intradaytick/middleware"
	"intradaytick/monitoring"
	"intradaytick/session"
	"intradaytick/tick"
	"intradaytick/utils"
	"intradaytick/writer"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	fmt.Println("IntraDay Tick Scraper")

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	if err := utils.InitLogger(cfg.App.LogDir, cfg.App.LogLevel); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	defer utils.SyncLogger()

	opts, err := config.ParseArgs(os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		config.PrintUsage(os.Stderr)
		return 2
	}

	prompter := config.NewPrompter(os.Stdin, os.Stdout)
	if !opts.NonInteractive {
		if err := prompter.Fill(opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			config.PrintUsage(os.Stderr)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		monitoring.StartMetricsCollection(ctx)
		server := monitoring.StartServer(cfg.Metrics.Addr)
		defer shutdownServer(server)
	}

	exitCode := 0
	if err := middleware.Recover(func() error { return run(ctx, cfg, opts) }); err != nil {
		utils.Error(err, "Run failed")
		exitCode = 1
	}

	ticks, errs, _, uptime := metrics.GetStats()
	utils.Logger.Infow("Finished",
		"ticks_written", ticks,
		"errors", errs,
		"uptime", uptime.String())

	if opts.NonInteractive {
		fmt.Println("Directly exiting...")
	} else {
		prompter.WaitForEnter()
	}
	return exitCode
}

func run(ctx context.Context, cfg *config.Config, opts *config.Options) error {
	token := ""
	if cfg.Session.AuthURL != "" {
		var err error
		token, err = session.Authenticate(ctx, &http.Client{Timeout: 30 * time.Second},
			cfg.Session.AuthURL, cfg.Session.User, cfg.Session.Password)
		if err != nil {
			return err
		}
	}

	sess := session.New(session.Options{
		Host:              cfg.Session.Host,
		Port:              cfg.Session.Port,
		Path:              cfg.Session.Path,
		Token:             token,
		HandshakeTimeout:  cfg.Session.HandshakeTimeout,
		HeartbeatInterval: cfg.Session.HeartbeatInterval,
	})

	utils.Logger.Infow("Connecting", "host", cfg.Session.Host, "port", cfg.Session.Port)
	if err := startSession(ctx, sess, cfg.Session.ConnectMaxElapsed); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.Stop()
	monitoring.RegisterHealthCheck("session", sess.Connected)

	if err := sess.OpenService(ctx, cfg.Session.Service); err != nil {
		return err
	}

	req := tick.BuildRequest(opts, time.Now())
	correlationID, err := tick.SendIntradayTickRequest(ctx, sess, cfg.Session.Service, req)
	if err != nil {
		return err
	}

	out := writer.NewDailyCSV(cfg.App.OutputDir, req.Security)
	defer func() {
		if err := out.Close(); err != nil {
			utils.Error(err, "Failed to close CSV file")
		}
	}()

	scraper := tick.NewScraper(sess, out, req.Security)
	if cfg.ClickHouse.Enabled {
		chdb, err := db.NewClickHouseDB(ctx, cfg.ClickHouse, cfg.Debug())
		if err != nil {
			return err
		}
		defer chdb.Close()
		monitoring.RegisterHealthCheck("clickhouse", func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return chdb.Ping(pingCtx)
		})
		scraper.WithSink(middleware.NewGuardedInserter(chdb))
	}

	runCtx := ctx
	if cfg.Session.RequestTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Session.RequestTimeout)
		defer cancel()
	}

	stats, err := scraper.Run(runCtx, correlationID)
	utils.Logger.Infow("Request complete",
		"security", req.Security,
		"events", stats.Events,
		"messages", stats.Messages,
		"failed_messages", stats.FailedMessages,
		"rows", stats.Rows,
		"files", stats.Files,
		"duration", stats.Duration.String())
	return err
}

// startSession retries Start with exponential backoff until maxElapsed.
func startSession(ctx context.Context, sess *session.Session, maxElapsed time.Duration) error {
	operation := func() error {
		err := sess.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, session.ErrStartupFailure) {
			return backoff.Permanent(err)
		}
		return err
	}

	retry := backoff.WithContext(utils.NewExponentialBackoff(maxElapsed), ctx)
	return backoff.RetryNotify(operation, retry, func(err error, d time.Duration) {
		utils.Logger.Warnw("Session start failed, retrying", "error", err, "retry_in", d.String())
	})
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		utils.Error(err, "Metrics server shutdown failed")
	}
}
