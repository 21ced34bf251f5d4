package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/indexopt/pkg/api"
	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/ethpandaops/indexopt/pkg/history"
	"github.com/ethpandaops/indexopt/pkg/scheduler"
	"github.com/ethpandaops/indexopt/pkg/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	leaderKey  = "scheduler:leader"
	historyKey = "history:last_run"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	scheduleFlags overrides
	cronSchedule  string
	runOnStart    bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Optimize recent indices on a cron schedule",
	Long: `Runs the optimization pass on a cron schedule and serves Prometheus metrics
until interrupted. When redis.url is configured only the replica holding the
leader lock optimizes. With api.enabled a read-only REST API reports the
scheduler state and the decisions a run would make right now.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleFlags.registerSelection(scheduleCmd)
	scheduleFlags.registerExecution(scheduleCmd)
	scheduleCmd.Flags().StringVar(&cronSchedule, "schedule", "", "cron expression; overrides scheduler.schedule")
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run once immediately after starting")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, &scheduleFlags)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("schedule") {
		cfg.Scheduler.Schedule = cronSchedule
	}

	if cmd.Flags().Changed("run-on-start") {
		cfg.Scheduler.RunOnStart = runOnStart
	}

	if err := cfg.Scheduler.Validate(); err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serveSchedule(ctx, logger, cfg)
}

// serveSchedule runs the scheduler and its HTTP endpoints until ctx is canceled
func serveSchedule(ctx context.Context, log logrus.FieldLogger, cfg *Config) error {
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

	var opts []scheduler.Option

	if cfg.Redis.Enabled() {
		redisOpt, err := cfg.Redis.Options()
		if err != nil {
			return err
		}

		store := history.NewStore(redisOpt, cfg.Redis.PrefixKey(historyKey), history.DefaultTTL)

		defer func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("Failed to close run history")
			}
		}()

		opts = append(opts,
			scheduler.WithLeaderElector(scheduler.NewLeaderElector(log, redisOpt, cfg.Redis.PrefixKey(leaderKey))),
			scheduler.WithRunHistory(store),
		)
	}

	service, closeQueue, err := newOptimizerService(log, client, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	sched := scheduler.NewScheduler(log, service, &cfg.Scheduler, opts...)

	srv, err := server.NewServer(log, &cfg.Server, sched)
	if err != nil {
		return err
	}

	apiSvc := api.NewService(&cfg.API, sched, service, log)
	if err := apiSvc.Start(ctx); err != nil {
		return err
	}

	defer func() {
		if err := apiSvc.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop API server")
		}
	}()

	return srv.Start(ctx)
}
