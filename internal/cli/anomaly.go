package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pratik-mahalle/cloudops/pkg/client"
	"github.com/spf13/cobra"
)

func newAnomalyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "anomaly",
		Aliases: []string{"anomalies"},
		Short:   "Detect and manage metric anomalies",
	}

	cmd.AddCommand(newAnomalyDetectCmd())
	cmd.AddCommand(newAnomalyAnalyzeCmd())
	cmd.AddCommand(newAnomalyListCmd())
	cmd.AddCommand(newAnomalyGetCmd())
	cmd.AddCommand(newAnomalySummaryCmd())
	cmd.AddCommand(newAnomalyStatusCmd("acknowledge", "acknowledged", "Acknowledge an anomaly"))
	cmd.AddCommand(newAnomalyStatusCmd("resolve", "resolved", "Resolve an anomaly"))
	cmd.AddCommand(newAnomalyStatusCmd("ignore", "ignored", "Ignore an anomaly"))
	cmd.AddCommand(newAnomalyStatusCmd("reopen", "open", "Reopen an anomaly"))

	return cmd
}

func newAnomalyDetectCmd() *cobra.Command {
	var lookbackHours int

	cmd := &cobra.Command{
		Use:   "detect <metric-type>",
		Short: "Run detection over the stored samples of a metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			result, err := apiClient.Anomalies().DetectForMetric(ctx, account, args[0], time.Duration(lookbackHours)*time.Hour)
			if err != nil {
				return fmt.Errorf("failed to detect anomalies: %w", err)
			}
			return renderDetection(result)
		},
	}

	cmd.Flags().IntVar(&lookbackHours, "lookback", 0, "lookback window in hours (default: server setting)")

	return cmd
}

func newAnomalyAnalyzeCmd() *cobra.Command {
	var (
		metricType string
		file       string
		values     string
		threshold  float64
		minPoints  int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run detection over a supplied series",
		Long: `Run detection over a series read from a JSON file of
{"timestamp": ..., "value": ...} points, or from --values, which are
spaced one hour apart and end now.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			var points []client.DataPoint
			switch {
			case file != "":
				if err := readJSONFile(file, &points); err != nil {
					return err
				}
			case values != "":
				series, err := parseFloats(values)
				if err != nil {
					return err
				}
				end := time.Now().UTC().Truncate(time.Hour)
				for i, v := range series {
					ts := end.Add(-time.Duration(len(series)-1-i) * time.Hour)
					points = append(points, client.DataPoint{Timestamp: ts, Value: v})
				}
			default:
				return fmt.Errorf("one of --file or --values is required")
			}

			ctx := context.Background()
			result, err := apiClient.Anomalies().Detect(ctx, client.DetectRequest{
				AccountID:           account,
				MetricType:          metricType,
				DataPoints:          points,
				ThresholdMultiplier: threshold,
				MinDataPoints:       minPoints,
			})
			if err != nil {
				return fmt.Errorf("failed to detect anomalies: %w", err)
			}
			return renderDetection(result)
		},
	}

	cmd.Flags().StringVar(&metricType, "metric", "", "metric type of the series")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file of data points ('-' for stdin)")
	cmd.Flags().StringVar(&values, "values", "", "comma-separated values")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "z-score threshold (default: server setting)")
	cmd.Flags().IntVar(&minPoints, "min-points", 0, "minimum data points (default: server setting)")
	_ = cmd.MarkFlagRequired("metric")

	return cmd
}

func renderDetection(result *client.DetectionResult) error {
	if getOutputFormat() != "table" {
		return printOutput(result)
	}

	st := result.Statistics
	fmt.Fprintf(out, "Metric:      %s\n", result.MetricType)
	fmt.Fprintf(out, "Data points: %d\n", st.DataPointsAnalyzed)
	fmt.Fprintf(out, "Mean:        %.4f (stddev %.4f)\n", st.Mean, st.StandardDeviation)
	fmt.Fprintf(out, "Thresholds:  [%.4f, %.4f]\n", st.LowerThreshold, st.UpperThreshold)
	if result.PersistenceError != "" {
		fmt.Fprintf(out, "Warning:     anomalies were not stored: %s\n", result.PersistenceError)
	}

	if !result.AnomalyDetected {
		fmt.Fprintln(out, "No anomalies detected")
		return nil
	}

	fmt.Fprintln(out)
	renderAnomalies(result.Anomalies)
	return nil
}

func renderAnomalies(anomalies []client.Anomaly) {
	t := NewTable("ID", "METRIC", "SEVERITY", "STATUS", "VALUE", "EXPECTED", "DEVIATION", "DETECTED")
	for _, a := range anomalies {
		t.AddRow(
			a.ID,
			a.MetricType,
			formatSeverity(a.Severity),
			formatStatus(a.Status),
			strconv.FormatFloat(a.CurrentValue, 'f', 2, 64),
			strconv.FormatFloat(a.ExpectedValue, 'f', 2, 64),
			fmt.Sprintf("%.2fσ", a.Deviation),
			a.DetectedAt.Format("2006-01-02 15:04"),
		)
	}
	t.Render()
}

func newAnomalyListCmd() *cobra.Command {
	var (
		metricType, severity, status string
		page, pageSize               int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			result, err := apiClient.Anomalies().List(ctx, account, &client.AnomalyListOptions{
				ListOptions: client.ListOptions{Page: page, PageSize: pageSize},
				MetricType:  metricType,
				Severity:    severity,
				Status:      status,
			})
			if err != nil {
				return fmt.Errorf("failed to list anomalies: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			renderAnomalies(result.Items)
			fmt.Fprintf(out, "\nPage %d of %d (%d anomalies)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&metricType, "metric", "", "filter by metric type")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size (max 100)")

	return cmd
}

func newAnomalyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get anomaly details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := apiClient.Anomalies().Get(ctx, account, args[0])
			if err != nil {
				return fmt.Errorf("failed to get anomaly: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(a)
			}

			fmt.Fprintf(out, "ID:          %s\n", a.ID)
			fmt.Fprintf(out, "Metric:      %s\n", a.MetricType)
			fmt.Fprintf(out, "Severity:    %s\n", formatSeverity(a.Severity))
			fmt.Fprintf(out, "Status:      %s\n", formatStatus(a.Status))
			fmt.Fprintf(out, "Value:       %.4f (expected %.4f, %.2fσ)\n", a.CurrentValue, a.ExpectedValue, a.Deviation)
			fmt.Fprintf(out, "Description: %s\n", a.Description)
			fmt.Fprintf(out, "Detected:    %s\n", a.DetectedAt.Format("2006-01-02 15:04:05"))
			if a.ResolvedAt != nil {
				fmt.Fprintf(out, "Resolved:    %s\n", a.ResolvedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newAnomalySummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show anomaly counts by severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			summary, err := apiClient.Anomalies().Summary(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to get anomaly summary: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(summary)
			}

			t := NewTable("TOTAL", "OPEN", "CRITICAL", "HIGH", "MEDIUM", "LOW")
			t.AddRow(
				strconv.Itoa(summary.TotalAnomalies),
				strconv.Itoa(summary.OpenAnomalies),
				strconv.Itoa(summary.CriticalCount),
				strconv.Itoa(summary.HighCount),
				strconv.Itoa(summary.MediumCount),
				strconv.Itoa(summary.LowCount),
			)
			t.Render()
			return nil
		},
	}
}

func newAnomalyStatusCmd(use, status, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if _, err := apiClient.Anomalies().UpdateStatus(ctx, account, args[0], status); err != nil {
				return fmt.Errorf("failed to update anomaly: %w", err)
			}

			fmt.Fprintf(out, "Anomaly %s %s\n", args[0], status)
			return nil
		},
	}
}
