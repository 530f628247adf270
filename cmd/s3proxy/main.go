package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patsnapops/piam-s3-proxy/internal/bucketindex"
	"github.com/patsnapops/piam-s3-proxy/internal/config"
	"github.com/patsnapops/piam-s3-proxy/internal/hostset"
	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/identity"
	"github.com/patsnapops/piam-s3-proxy/internal/policy"
	"github.com/patsnapops/piam-s3-proxy/internal/server"
	"github.com/patsnapops/piam-s3-proxy/internal/state"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "s3proxy",
		Short:   "piam-s3-proxy - protocol-aware reverse proxy for S3-compatible storage",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE:    run,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("listen", "l", ":8080", "Listen address")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("dev-mode", false, "Append s3-proxy.dev to the proxy host set")
	rootCmd.PersistentFlags().String("identity-mode", string(config.AccountSuffixMode), "Identity resolution mode: account-suffix or uni-key")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging(cfg.LogLevel)
	logrus.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"features": cfg.Features(),
	}).Info("starting piam-s3-proxy")

	hosts, err := hostset.New(cfg.ProxyHosts)
	if err != nil {
		return fmt.Errorf("invalid proxy host configuration: %w", err)
	}

	container := iam.NewMemory()
	engine := policy.NewMemory(container)

	var resolver identity.Resolver
	var refresher state.Refresher
	var mgr *state.Manager
	switch cfg.IdentityMode {
	case config.AccountSuffixMode:
		resolver = identity.AccountSuffixResolver{Container: container}
		refresher = noopRefresher{container: container}
		mgr = state.NewManager(refresher, cfg.StateUpdateInterval, state.Snapshot{IAM: container})
	case config.UniKeyMode:
		builder := &bucketindex.Builder{
			Container:            container,
			Lister:                bucketindex.AWSLister{},
			IPProvider:            cfg.IPProvider,
			ConfigFetchingTimeout: cfg.ConfigFetchingTimeout,
		}
		idx, buildErr := builder.Build(context.Background())
		if buildErr != nil {
			return fmt.Errorf("initial bucket index build failed: %w", buildErr)
		}
		refresher = bucketIndexRefresher{container: container, builder: builder}
		mgr = state.NewManager(refresher, cfg.StateUpdateInterval, state.Snapshot{IAM: container, Bucket: idx})
		// resolver consults mgr's live snapshot on every call, so a
		// background refresh is actually observed; binding it to the
		// one-off idx built above would freeze bucket routing at
		// startup.
		resolver = identity.UniKeyResolver{Locator: snapshotLocator{mgr: mgr}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logrus.Info("received shutdown signal")
		cancel()
	}()

	go mgr.Start(ctx)

	srv := server.New(cfg, hosts, mgr, resolver, engine)
	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logrus.Info("piam-s3-proxy stopped")
	return nil
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	switch level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// noopRefresher keeps the IAM container snapshot stable in
// account-suffix mode, which has no bucket index to rebuild.
type noopRefresher struct {
	container iam.Container
}

func (r noopRefresher) Refresh(context.Context) (state.Snapshot, error) {
	return state.Snapshot{IAM: r.container}, nil
}

// snapshotLocator adapts the live state.Manager snapshot to
// identity.BucketLocator, so the uni-key resolver always consults
// whatever bucket index the refresh loop most recently published
// instead of a copy frozen at startup.
type snapshotLocator struct {
	mgr *state.Manager
}

func (l snapshotLocator) Locate(bucket string) ([]identity.AccessTarget, error) {
	return l.mgr.Load().Bucket.Locate(bucket)
}

// bucketIndexRefresher rebuilds the uni-key bucket index on each tick.
type bucketIndexRefresher struct {
	container iam.Container
	builder   *bucketindex.Builder
}

func (r bucketIndexRefresher) Refresh(ctx context.Context) (state.Snapshot, error) {
	idx, err := r.builder.Build(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	return state.Snapshot{IAM: r.container, Bucket: idx}, nil
}
