package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/ethpandaops/indexopt/pkg/optimizer"
	"github.com/ethpandaops/indexopt/pkg/selector"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var planFlags overrides

//nolint:gochecknoglobals // Cobra commands are typically global
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which indices would be optimized",
	Long: `Lists every index on the cluster and prints the decision made for it
without optimizing anything. OFFSET is the cutoff minus the index timestamp,
so selected indices show a negative offset.`,
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planFlags.registerSelection(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, &planFlags)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	client, err := elasticsearch.NewClient(logger, &cfg.Elasticsearch)
	if err != nil {
		return err
	}

	if err := client.Start(); err != nil {
		return err
	}

	defer func() {
		if err := client.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to close Elasticsearch client")
		}
	}()

	decisions, err := optimizer.NewService(logger, client, cfg.Optimizer()).Plan(cmd.Context())
	if err != nil {
		return err
	}

	return printDecisions(cmd.OutOrStdout(), decisions)
}

func printDecisions(out io.Writer, decisions []selector.Decision) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INDEX\tGRANULARITY\tOUTCOME\tOFFSET")

	for _, d := range decisions {
		granularity, offset := "-", "-"

		switch d.Outcome {
		case selector.OutcomeMissingPrefix, selector.OutcomeInvalidTimestamp:
		case selector.OutcomeUnconfiguredGranularity:
			granularity = d.Granularity.String()
		default:
			granularity = d.Granularity.String()
			offset = d.Offset.String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Index, granularity, d.Outcome, offset)
	}

	return w.Flush()
}
