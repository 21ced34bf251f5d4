package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/ethpandaops/indexopt/pkg/optimizer"
	"github.com/ethpandaops/indexopt/pkg/tasks"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var runFlags overrides

//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize recent indices once",
	Long: `Lists every index on the cluster and force-merges the ones whose date
suffix is newer than the configured number of days (YYYY.MM.DD) or hours
(YYYY.MM.DD.HH). Indices without the prefix or a parseable date are skipped.`,
	Example: `  indexopt run --host es-1 -d 2
  indexopt run -H 6 -p events- -s - --dry-run`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.registerSelection(runCmd)
	runFlags.registerExecution(runCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, &runFlags)
	if err != nil {
		return err
	}

	// Configuration is valid; from here on errors are operational
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = optimizeOnce(ctx, logger, cfg)

	return err
}

// optimizeOnce connects to the cluster and performs a single optimization pass
func optimizeOnce(ctx context.Context, log logrus.FieldLogger, cfg *Config) (*optimizer.Summary, error) {
	client, err := elasticsearch.NewClient(log, &cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}

	if err := client.Start(); err != nil {
		return nil, err
	}

	defer func() {
		if err := client.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close Elasticsearch client")
		}
	}()

	service, closeQueue, err := newOptimizerService(log, client, cfg)
	if err != nil {
		return nil, err
	}
	defer closeQueue()

	return service.Run(ctx)
}

// newOptimizerService builds the optimizer, dispatching to the task queue when
// configured. The returned func releases the queue connection.
func newOptimizerService(log logrus.FieldLogger, client elasticsearch.ClientInterface, cfg *Config) (*optimizer.Service, func(), error) {
	if !cfg.Worker.Dispatch {
		return optimizer.NewService(log, client, cfg.Optimizer()), func() {}, nil
	}

	redisOpt, err := cfg.Redis.QueueOptions()
	if err != nil {
		return nil, nil, err
	}

	queue := tasks.NewQueueManager(redisOpt, cfg.Worker.Queue, cfg.Worker.TaskTimeout)
	service := optimizer.NewService(log, client, cfg.Optimizer(), optimizer.WithDispatcher(queue))

	log.WithField("queue", queue.Queue()).Info("Dispatching selected indices to workers")

	return service, func() {
		if err := queue.Close(); err != nil {
			log.WithError(err).Warn("Failed to close task queue")
		}
	}, nil
}
