package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pratik-mahalle/cloudops/pkg/client"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newCostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cost",
		Aliases: []string{"costs"},
		Short:   "Cloud cost analytics",
	}

	cmd.AddCommand(newCostListCmd())
	cmd.AddCommand(newCostRecordCmd())
	cmd.AddCommand(newCostTrendCmd())
	cmd.AddCommand(newCostTopCmd())
	cmd.AddCommand(newCostAnalyzeCmd())
	cmd.AddCommand(newCostForecastCmd())
	cmd.AddCommand(newCostSeriesCmd())
	cmd.AddCommand(newCostForecastsCmd())
	cmd.AddCommand(newCostSyncCmd())

	return cmd
}

func newCostListCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List daily costs",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			records, err := apiClient.Costs().List(ctx, account, start, end)
			if err != nil {
				return fmt.Errorf("failed to list costs: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(records)
			}

			t := NewTable("DATE", "TOTAL", "CURRENCY", "SERVICES")
			for _, r := range records {
				t.AddRow(r.Date, r.TotalCost.StringFixed(2), r.Currency, strconv.Itoa(len(r.Breakdown)))
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (default: 30 days ago)")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD (default: today)")

	return cmd
}

func newCostRecordCmd() *cobra.Command {
	var (
		date, total, currency string
		file                  string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Store one day of costs",
		Long: `Store one day of costs from --date and --total, or from a JSON file
holding a full record with its per-service breakdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			var req client.RecordDailyRequest
			if file != "" {
				if err := readJSONFile(file, &req); err != nil {
					return err
				}
			} else {
				amount, err := decimal.NewFromString(total)
				if err != nil {
					return fmt.Errorf("invalid total %q", total)
				}
				req = client.RecordDailyRequest{Date: date, TotalCost: amount, Currency: currency}
			}

			ctx := context.Background()
			record, err := apiClient.Costs().Record(ctx, account, req)
			if err != nil {
				return fmt.Errorf("failed to record costs: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(record)
			}
			fmt.Fprintf(out, "Recorded %s %s for %s\n", record.TotalCost.StringFixed(2), record.Currency, record.Date)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", time.Now().UTC().Format("2006-01-02"), "date YYYY-MM-DD")
	cmd.Flags().StringVar(&total, "total", "0", "total cost")
	cmd.Flags().StringVar(&currency, "currency", "USD", "ISO currency code")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the record ('-' for stdin)")

	return cmd
}

func newCostTrendCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Compare the last period with the one before",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			trend, err := apiClient.Costs().Trend(ctx, account, period)
			if err != nil {
				return fmt.Errorf("failed to get cost trend: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(trend)
			}

			t := NewTable("PERIOD", "CURRENT", "PREVIOUS", "CHANGE")
			t.AddRow(
				trend.Period,
				strconv.FormatFloat(trend.CurrentCost, 'f', 2, 64),
				strconv.FormatFloat(trend.PreviousCost, 'f', 2, 64),
				formatTrend(trend.Trend, trend.ChangePercent),
			)
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "month", "comparison period: week or month")

	return cmd
}

func newCostTopCmd() *cobra.Command {
	var days, limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank services by cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			services, err := apiClient.Costs().TopServices(ctx, account, days, limit)
			if err != nil {
				return fmt.Errorf("failed to get top services: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(services)
			}
			renderServices(services)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "days to rank over")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of services")

	return cmd
}

func renderServices(services []client.ServiceSummary) {
	t := NewTable("SERVICE", "COST", "SHARE", "CHANGE")
	for _, s := range services {
		t.AddRow(
			truncate(s.Service, 40),
			strconv.FormatFloat(s.TotalCost, 'f', 2, 64),
			fmt.Sprintf("%.1f%%", s.PercentOfTotal),
			fmt.Sprintf("%+.1f%%", s.ChangeFromPrevious),
		)
	}
	t.Render()
}

func newCostAnalyzeCmd() *cobra.Command {
	var (
		start, end string
		forecast   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarise costs over a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if end == "" {
				end = now.Format("2006-01-02")
			}
			if start == "" {
				start = now.AddDate(0, 0, -30).Format("2006-01-02")
			}

			ctx := context.Background()
			analysis, err := apiClient.Costs().Analyze(ctx, account, client.AnalyzeRequest{
				StartDate:       start,
				EndDate:         end,
				IncludeForecast: forecast,
			})
			if err != nil {
				return fmt.Errorf("failed to analyze costs: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(analysis)
			}

			fmt.Fprintf(out, "Range:         %s to %s\n", analysis.StartDate, analysis.EndDate)
			fmt.Fprintf(out, "Total:         %.2f\n", analysis.TotalCost)
			fmt.Fprintf(out, "Daily average: %.2f\n", analysis.AverageDailyCost)
			if analysis.Trend != nil {
				fmt.Fprintf(out, "Trend:         %s\n", formatTrend(analysis.Trend.Trend, analysis.Trend.ChangePercent))
			}
			if f := analysis.Forecast; f != nil {
				fmt.Fprintf(out, "Forecast:      %.2f for %s [%.2f, %.2f]\n", f.PredictedCost, f.ForecastDate, f.LowerBound, f.UpperBound)
			}
			if len(analysis.TopServices) > 0 {
				fmt.Fprintln(out)
				renderServices(analysis.TopServices)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (default: 30 days ago)")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&forecast, "forecast", false, "include next month's forecast")

	return cmd
}

func newCostForecastCmd() *cobra.Command {
	var (
		values string
		days   int
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast next month's cost",
		Long: `Forecast next month's cost from the stored costs of the last --days days,
or from a supplied --values list of daily costs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			var result *client.ForecastResult
			if values != "" {
				history, perr := parseFloats(values)
				if perr != nil {
					return perr
				}
				result, err = apiClient.Costs().Forecast(ctx, account, history)
			} else {
				result, err = apiClient.Costs().ForecastFromStored(ctx, account, days)
			}
			if err != nil {
				return fmt.Errorf("failed to forecast costs: %w", err)
			}
			return renderForecasts(result.Forecasts, result.PersistenceError)
		},
	}

	cmd.Flags().StringVar(&values, "values", "", "comma-separated daily costs")
	cmd.Flags().IntVar(&days, "days", 30, "days of stored history to use")

	return cmd
}

func newCostSeriesCmd() *cobra.Command {
	var (
		months       int
		base, growth float64
	)

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Extrapolate monthly costs at a fixed growth rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			var opts client.SeriesOptions
			flags := cmd.Flags()
			if flags.Changed("months") {
				opts.Months = client.Int(months)
			}
			if flags.Changed("base") {
				opts.BaseMonthlyCost = client.Float64(base)
			}
			if flags.Changed("growth") {
				opts.GrowthFactor = client.Float64(growth)
			}

			ctx := context.Background()
			result, err := apiClient.Costs().ForecastSeries(ctx, account, &opts)
			if err != nil {
				return fmt.Errorf("failed to forecast costs: %w", err)
			}
			return renderForecasts(result.Forecasts, result.PersistenceError)
		},
	}

	cmd.Flags().IntVar(&months, "months", 0, "months to project, 1-24 (default: server setting)")
	cmd.Flags().Float64Var(&base, "base", 0, "current monthly cost (default: server setting)")
	cmd.Flags().Float64Var(&growth, "growth", 0, "monthly growth factor, e.g. 1.05 (default: server setting)")

	return cmd
}

func newCostForecastsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "forecasts",
		Short: "List stored forecasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			forecasts, err := apiClient.Costs().ListForecasts(ctx, account, limit)
			if err != nil {
				return fmt.Errorf("failed to list forecasts: %w", err)
			}
			return renderForecasts(forecasts, "")
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 12, "maximum forecasts")

	return cmd
}

func renderForecasts(forecasts []client.Forecast, persistenceError string) error {
	if getOutputFormat() != "table" {
		return printOutput(forecasts)
	}

	t := NewTable("MONTH", "PREDICTED", "LOWER", "UPPER", "CONFIDENCE")
	for _, f := range forecasts {
		t.AddRow(
			f.ForecastDate,
			strconv.FormatFloat(f.PredictedCost, 'f', 2, 64),
			strconv.FormatFloat(f.LowerBound, 'f', 2, 64),
			strconv.FormatFloat(f.UpperBound, 'f', 2, 64),
			fmt.Sprintf("%.0f%%", f.ConfidenceLevel*100),
		)
	}
	t.Render()
	if persistenceError != "" {
		fmt.Fprintf(out, "\nWarning: forecasts were not stored: %s\n", persistenceError)
	}
	return nil
}

func newCostSyncCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Collect one day of costs from Cost Explorer",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			record, err := apiClient.Costs().Sync(ctx, account, date)
			if err != nil {
				return fmt.Errorf("failed to sync costs: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(record)
			}
			fmt.Fprintf(out, "Synced %s: %s %s across %d services\n",
				record.Date, record.TotalCost.StringFixed(2), record.Currency, len(record.Breakdown))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default: yesterday)")

	return cmd
}
