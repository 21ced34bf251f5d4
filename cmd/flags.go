package cmd

import (
	"time"

	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// overrides holds command line values that replace config file settings.
// A flag only takes effect when it was set explicitly.
type overrides struct {
	host           string
	port           int
	timeout        time.Duration
	prefix         string
	separator      string
	hours          int
	days           int
	dryRun         bool
	maxNumSegments int
	dispatch       bool
}

func (o *overrides) registerSelection(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVar(&o.host, "host", "localhost", "Elasticsearch host; replaces elasticsearch.url together with --port")
	flags.IntVar(&o.port, "port", 9200, "Elasticsearch port")
	flags.DurationVarP(&o.timeout, "timeout", "t", 30*time.Second, "Elasticsearch request timeout")
	flags.StringVarP(&o.prefix, "prefix", "p", "logstash-", "prefix for the indices")
	flags.StringVarP(&o.separator, "separator", "s", ".", "time unit separator")
	flags.IntVarP(&o.hours, "hours-to-optimize", "H", 0, "number of hours to optimize")
	flags.IntVarP(&o.days, "days-to-optimize", "d", 0, "number of days to optimize")
}

func (o *overrides) registerExecution(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.BoolVarP(&o.dryRun, "dry-run", "n", false, "if true, does not perform any changes to the Elasticsearch indices")
	flags.IntVar(&o.maxNumSegments, "max-num-segments", 0, "number of segments to merge each index down to (0 lets Elasticsearch decide)")
	flags.BoolVar(&o.dispatch, "dispatch", false, "enqueue selected indices for workers instead of optimizing them in-process")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()

	if flags.Changed("host") || flags.Changed("port") {
		cfg.Elasticsearch.URL = elasticsearch.URLFromHostPort(o.host, o.port)
	}

	if flags.Changed("timeout") {
		cfg.Elasticsearch.Timeout = o.timeout
	}

	if flags.Changed("prefix") {
		cfg.Selector.Prefix = o.prefix
	}

	if flags.Changed("separator") {
		cfg.Selector.Separator = o.separator
	}

	if flags.Changed("hours-to-optimize") {
		cfg.Selector.HoursToOptimize = o.hours
	}

	if flags.Changed("days-to-optimize") {
		cfg.Selector.DaysToOptimize = o.days
	}

	if flags.Changed("dry-run") {
		cfg.DryRun = o.dryRun
	}

	if flags.Changed("max-num-segments") {
		cfg.Elasticsearch.MaxNumSegments = o.maxNumSegments
	}

	if flags.Changed("dispatch") {
		cfg.Worker.Dispatch = o.dispatch
	}
}

// loadConfig reads the config file, applies flag overrides and builds the
// logger for a command.
func loadConfig(cmd *cobra.Command, o *overrides) (*Config, *logrus.Logger, error) {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	o.apply(cmd, cfg)

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
