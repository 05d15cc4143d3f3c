package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/pratik-mahalle/cloudops/pkg/client"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service and account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			account, accountErr := accountID()

			ready, readyErr := apiClient.Ready(ctx)

			var (
				summary  *client.AnomalySummary
				alerts   []client.Alert
				trend    *client.Trend
				summErr  error
				alertErr error
				trendErr error
			)
			if accountErr == nil {
				summary, summErr = apiClient.Anomalies().Summary(ctx, account)
				alerts, alertErr = apiClient.Alerts().List(ctx, account, &client.AlertListOptions{Status: "active", Limit: 100})
				trend, trendErr = apiClient.Costs().Trend(ctx, account, "month")
			}

			if getOutputFormat() != "table" {
				result := map[string]interface{}{}
				if readyErr == nil {
					result["service"] = ready
				}
				if summErr == nil && summary != nil {
					result["anomalies"] = summary
				}
				if alertErr == nil && accountErr == nil {
					result["activeAlerts"] = len(alerts)
				}
				if trendErr == nil && trend != nil {
					result["costTrend"] = trend
				}
				return printOutput(result)
			}

			fmt.Fprintln(out, "cloudops status")
			fmt.Fprintln(out, strings.Repeat("=", 40))

			if readyErr != nil {
				fmt.Fprintf(out, "  Service:       (error: %v)\n", readyErr)
			} else {
				fmt.Fprintf(out, "  Service:       %s\n", formatStatus(ready.Status))
				fmt.Fprintf(out, "  Store:         %s\n", formatStatus(ready.Store))
				if ready.Cache != "" {
					fmt.Fprintf(out, "  Cache:         %s\n", formatStatus(ready.Cache))
				}
			}

			if accountErr != nil {
				fmt.Fprintln(out, "  Account:       (not set)")
				return nil
			}
			fmt.Fprintf(out, "  Account:       %s\n", account)

			if summErr != nil {
				fmt.Fprintf(out, "  Anomalies:     (error: %v)\n", summErr)
			} else {
				fmt.Fprintf(out, "  Anomalies:     %d open", summary.OpenAnomalies)
				if summary.CriticalCount > 0 {
					fmt.Fprintf(out, " (%d critical)", summary.CriticalCount)
				}
				fmt.Fprintln(out)
			}

			if alertErr != nil {
				fmt.Fprintf(out, "  Alerts:        (error: %v)\n", alertErr)
			} else {
				high := 0
				for _, a := range alerts {
					if a.Severity == "error" || a.Severity == "critical" {
						high++
					}
				}
				fmt.Fprintf(out, "  Alerts:        %d active", len(alerts))
				if high > 0 {
					fmt.Fprintf(out, " (%d high severity)", high)
				}
				fmt.Fprintln(out)
			}

			if trendErr != nil {
				fmt.Fprintf(out, "  Cost trend:    (error: %v)\n", trendErr)
			} else {
				fmt.Fprintf(out, "  Cost trend:    %.2f this month, %s\n", trend.CurrentCost, formatTrend(trend.Trend, trend.ChangePercent))
			}

			return nil
		},
	}
}
