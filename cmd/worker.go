package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/ethpandaops/indexopt/pkg/server"
	"github.com/ethpandaops/indexopt/pkg/tasks"
	"github.com/ethpandaops/indexopt/pkg/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	workerFlags       overrides
	workerConcurrency int
)

//nolint:gochecknoglobals // Cobra commands are typically global
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Force-merge indices dispatched through the Redis task queue",
	Long: `The worker takes force-merge tasks enqueued by "run --dispatch" or
"schedule --dispatch" and executes them against the cluster until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	flags := workerCmd.Flags()
	flags.StringVar(&workerFlags.host, "host", "localhost", "Elasticsearch host; replaces elasticsearch.url together with --port")
	flags.IntVar(&workerFlags.port, "port", 9200, "Elasticsearch port")
	flags.DurationVarP(&workerFlags.timeout, "timeout", "t", 30*time.Second, "Elasticsearch request timeout")
	flags.IntVar(&workerFlags.maxNumSegments, "max-num-segments", 0, "number of segments to merge each index down to (0 lets Elasticsearch decide)")
	flags.IntVar(&workerConcurrency, "concurrency", 1, "number of indices force-merged at once")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	workerFlags.apply(cmd, cfg)

	if cmd.Flags().Changed("concurrency") {
		cfg.Worker.Concurrency = workerConcurrency
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	// Workers never select indices, so no retention window is required
	if err := validateWorkerConfig(cfg); err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serveWorker(ctx, logger, cfg)
}

func validateWorkerConfig(cfg *Config) error {
	if !cfg.Redis.Enabled() {
		return ErrRedisRequired
	}

	for _, validate := range []func() error{
		cfg.Elasticsearch.Validate,
		cfg.Redis.Validate,
		cfg.Worker.Validate,
		cfg.Server.Validate,
	} {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

// serveWorker processes queued force-merges until ctx is canceled
func serveWorker(ctx context.Context, log logrus.FieldLogger, cfg *Config) error {
	client, err := elasticsearch.NewClient(log, &cfg.Elasticsearch)
	if err != nil {
		return err
	}

	if err := client.Start(); err != nil {
		return err
	}

	defer func() {
		if err := client.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close Elasticsearch client")
		}
	}()

	redisOpt, err := cfg.Redis.QueueOptions()
	if err != nil {
		return err
	}

	svc, err := worker.NewService(log, &cfg.Worker, redisOpt, tasks.NewTaskHandler(log, client))
	if err != nil {
		return err
	}

	srv, err := server.NewServer(log, &cfg.Server, svc)
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
