// Track-notifier receives task announcements from Slack (and optionally
// a mailbox), classifies them into engineering tracks, summarizes them and
// delivers the summary to every subscriber of the matching track.
//
// Usage:
//
//	# Start with the default config (~/.config/track-notifier/config.yaml)
//	track-notifier
//
//	# Start with an explicit config file
//	track-notifier -config ./config.yaml
//
//	# Print version information
//	track-notifier version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/ai"
	"github.com/nhle/track-notifier/internal/credential"
	"github.com/nhle/track-notifier/internal/extract"
	"github.com/nhle/track-notifier/internal/fanout"
	"github.com/nhle/track-notifier/internal/gateway"
	"github.com/nhle/track-notifier/internal/logging"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/notify"
	"github.com/nhle/track-notifier/internal/pipeline"
	"github.com/nhle/track-notifier/internal/registration"
	"github.com/nhle/track-notifier/internal/server"
	"github.com/nhle/track-notifier/internal/source/mailbox"
	"github.com/nhle/track-notifier/internal/store"
	appsync "github.com/nhle/track-notifier/internal/sync"
	"github.com/nhle/track-notifier/internal/summary"
	"github.com/nhle/track-notifier/internal/track"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Printf("track-notifier %s (%s)\n", version, gitCommit)
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  track-notifier [-config path]   Start the service\n")
			fmt.Fprintf(os.Stderr, "  track-notifier version          Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "track-notifier: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled or the HTTP
// server fails.
func run(ctx context.Context, configPath string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Keyring lookups only fill secrets the file and environment left empty.
	resolved, credErr := credential.ResolveSecrets(cfg)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if credErr != nil {
		logger.Warn("keyring unavailable, using configured secrets only", zap.Error(credErr))
	}
	logger.Info("starting track-notifier",
		zap.String("version", version),
		zap.String("config", configPath),
		zap.Strings("keyring_secrets", resolved),
	)

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	catalog, err := track.ParseCatalog(cfg.Tracks.Catalog)
	if err != nil {
		return err
	}
	policy, err := track.ParsePolicy(cfg.Tracks.Policy)
	if err != nil {
		return err
	}
	classifier, err := track.NewClassifier(catalog, policy)
	if err != nil {
		return err
	}
	endpointPolicy, err := extract.ParseEndpointPolicy(cfg.Extraction.EndpointPolicy)
	if err != nil {
		return err
	}

	summarizer, err := ai.New(cfg.Summarizer)
	if err != nil {
		return fmt.Errorf("creating summarizer: %w", err)
	}
	assembler := summary.NewAssembler(
		summarizer,
		extract.New(endpointPolicy),
		catalog,
		summary.Options{
			MaxInputTokens: cfg.Summarizer.MaxInputTokens,
			MinLength:      cfg.Summarizer.MinLength,
			MaxLength:      cfg.Summarizer.MaxLength,
			Timeout:        cfg.Summarizer.Timeout(),
		},
		logger.Named("summary"),
	)

	slackClient, err := gateway.NewClient(cfg.Slack.BotToken.Value(), cfg.Slack.APIURL)
	if err != nil {
		return err
	}

	dispatchOpts := []fanout.Option{fanout.WithRecorder(st)}
	if cfg.SMTP.Enabled {
		email, err := notify.NewEmail(cfg.SMTP)
		if err != nil {
			return fmt.Errorf("configuring email delivery: %w", err)
		}
		dispatchOpts = append(dispatchOpts, fanout.WithEmailNotifier(email))
	}
	dispatcher := fanout.NewDispatcher(
		st,
		notify.NewDirectMessage(slackClient),
		fanout.Config{
			Concurrency: cfg.Fanout.Concurrency,
			SendTimeout: cfg.Fanout.SendTimeout(),
			Attribution: cfg.Fanout.Attribution,
		},
		logger.Named("fanout"),
		dispatchOpts...,
	)

	processor := pipeline.NewProcessor(
		gateway.NewFilter(cfg.Announcements.Signals),
		classifier,
		assembler,
		dispatcher,
		logger.Named("pipeline"),
		pipeline.WithLinker(slackClient),
		pipeline.WithLog(st),
	)
	queue := pipeline.NewQueue(processor, cfg.Announcements.QueueSize, cfg.Announcements.Workers, logger.Named("queue"))
	queue.Start(ctx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := queue.Shutdown(drainCtx); err != nil {
			logger.Warn("announcement queue shutdown", zap.Error(err))
		}
	}()

	if cfg.IMAP.Enabled {
		poller := appsync.New(queue, logger.Named("poller"))
		poller.RegisterSource(mailbox.New(cfg.IMAP), time.Duration(cfg.IMAP.PollIntervalSec)*time.Second)
		poller.Start(ctx)
		defer poller.Stop()
	}

	registrar := registration.NewService(st, catalog, logger.Named("registration"))
	srv, err := server.NewServer(queue, registrar, slackClient, logger.Named("http"), server.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		VerifySignatures: cfg.Server.VerifySignatures,
		SigningSecret:    cfg.Slack.SigningSecret.Value(),
		BodyLimit:        cfg.Server.BodyLimit,
		RegisterCommand:  cfg.Slack.RegisterCommand,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}
