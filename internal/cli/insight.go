package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInsightCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "insights",
		Aliases: []string{"insight"},
		Short:   "Generate cost and usage insights",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := accountID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			in, err := apiClient.Insights().Get(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to generate insights: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(in)
			}

			fmt.Fprintln(out, in.Insights)
			if len(in.Concerns) > 0 {
				fmt.Fprintln(out, "\nConcerns:")
				for _, c := range in.Concerns {
					fmt.Fprintf(out, "  - %s\n", c)
				}
			}
			if len(in.Recommendations) > 0 {
				fmt.Fprintln(out, "\nRecommendations:")
				for _, r := range in.Recommendations {
					fmt.Fprintf(out, "  - %s\n", r)
				}
			}
			if in.Fallback {
				fmt.Fprintln(out, "\n(generated without a language model)")
			}
			return nil
		},
	}
}
