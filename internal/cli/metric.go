package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pratik-mahalle/cloudops/pkg/client"
	"github.com/spf13/cobra"
)

func newMetricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "metric",
		Aliases: []string{"metrics"},
		Short:   "Query and collect metrics",
	}

	cmd.AddCommand(newMetricQueryCmd())
	cmd.AddCommand(newMetricTypesCmd())
	cmd.AddCommand(newMetricCollectCmd())
	cmd.AddCommand(newMetricIngestCmd())

	return cmd
}

func newMetricQueryCmd() *cobra.Command {
	var (
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "query <metric-type>",
		Short: "Show stored samples of a metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			q := client.MetricQuery{MetricType: args[0], Limit: limit}
			if since > 0 {
				q.Start = time.Now().Add(-since)
			}

			ctx := context.Background()
			samples, err := apiClient.Metrics().Query(ctx, account, q)
			if err != nil {
				return fmt.Errorf("failed to query metrics: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(samples)
			}
			renderMetrics(samples)
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to query (0 for all)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum samples")

	return cmd
}

func renderMetrics(samples []client.Metric) {
	t := NewTable("TIMESTAMP", "METRIC", "VALUE", "UNIT", "NAMESPACE")
	for _, m := range samples {
		t.AddRow(
			m.Timestamp.Format("2006-01-02 15:04:05"),
			m.MetricType,
			strconv.FormatFloat(m.Value, 'f', -1, 64),
			m.Unit,
			m.Namespace,
		)
	}
	t.Render()
}

func newMetricTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List metric types with stored samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			types, err := apiClient.Metrics().Types(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to list metric types: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(types)
			}
			for _, t := range types {
				fmt.Fprintln(out, t)
			}
			return nil
		},
	}
}

func newMetricCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Pull the latest samples from CloudWatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			samples, err := apiClient.Metrics().Collect(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to collect metrics: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(samples)
			}
			fmt.Fprintf(out, "Collected %d samples\n", len(samples))
			return nil
		},
	}
}

func newMetricIngestCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store samples from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			var samples []client.Metric
			if err := readJSONFile(file, &samples); err != nil {
				return err
			}

			ctx := context.Background()
			stored, err := apiClient.Metrics().Ingest(ctx, account, samples)
			if err != nil {
				return fmt.Errorf("failed to ingest metrics: %w", err)
			}

			fmt.Fprintf(out, "Stored %d samples\n", stored)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file of samples ('-' for stdin)")

	return cmd
}
