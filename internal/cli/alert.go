package cli

import (
	"context"
	"fmt"

	"github.com/pratik-mahalle/cloudops/pkg/client"
	"github.com/spf13/cobra"
)

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Aliases: []string{"alerts"},
		Short:   "Manage alerts",
	}

	cmd.AddCommand(newAlertListCmd())
	cmd.AddCommand(newAlertSendCmd())
	cmd.AddCommand(newAlertStatusCmd("acknowledge", "acknowledged", "Acknowledge an alert"))
	cmd.AddCommand(newAlertStatusCmd("resolve", "resolved", "Resolve an alert"))

	return cmd
}

func newAlertListCmd() *cobra.Command {
	var opts client.AlertListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			alerts, err := apiClient.Alerts().List(ctx, account, &opts)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(alerts)
			}

			t := NewTable("ID", "TYPE", "SEVERITY", "STATUS", "TITLE", "CREATED")
			for _, a := range alerts {
				t.AddRow(
					a.ID,
					a.Type,
					formatSeverity(a.Severity),
					formatStatus(a.Status),
					truncate(a.Title, 50),
					a.CreatedAt.Format("2006-01-02 15:04"),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by type")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum alerts (max 100)")

	return cmd
}

func newAlertSendCmd() *cobra.Command {
	var req client.SendAlertRequest

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Raise an alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			alert, err := apiClient.Alerts().Send(ctx, account, req)
			if err != nil {
				return fmt.Errorf("failed to send alert: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(alert)
			}
			fmt.Fprintf(out, "Alert %s sent\n", alert.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "alert title")
	cmd.Flags().StringVar(&req.Message, "message", "", "alert message")
	cmd.Flags().StringVar(&req.Severity, "severity", "info", "severity: info, warning, error, critical")
	cmd.Flags().StringVar(&req.Type, "type", "threshold", "type: anomaly, budget, threshold, recommendation")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAlertStatusCmd(use, status, short string) *cobra.Command {
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
			if _, err := apiClient.Alerts().UpdateStatus(ctx, account, args[0], status); err != nil {
				return fmt.Errorf("failed to update alert: %w", err)
			}

			fmt.Fprintf(out, "Alert %s %s\n", args[0], status)
			return nil
		},
	}
}
