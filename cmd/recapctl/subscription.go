package main

import (
	"fmt"
	"time"

	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"

	"github.com/spf13/cobra"
)

func ensureCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Make sure the user has an active event subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.resolveUser(cmd.Context())
			if err != nil {
				return err
			}
			view, err := c.app.Subscriptions.EnsureActiveSubscription(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("ensure failed (%s): %w", recap_errors.CodeOf(err), err)
			}
			return printJSON(httpdto.SubscriptionResponse{Success: true, Subscription: &view})
		},
	}
}

func renewCmd(c *cli) *cobra.Command {
	var within time.Duration

	cmd := &cobra.Command{
		Use:   "renew",
		Short: "Extend the user's subscription to the maximum lifetime",
		Long: `Renew extends the remote subscription and resets the local failure counter.
Schedule it from cron; with --within the call is skipped while the
subscription has more than that much time left.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := c.resolveUser(ctx)
			if err != nil {
				return err
			}
			if within > 0 {
				row, err := c.app.Subscriptions.Get(ctx, userID)
				if err == nil && row.IsActive(time.Now().Add(within)) {
					fmt.Printf("subscription %s valid until %s, skipping\n", row.SubscriptionName, row.ExpireTime.Format(time.RFC3339))
					return nil
				}
			}
			view, err := c.app.Subscriptions.Renew(ctx, userID)
			if err != nil {
				return fmt.Errorf("renew failed (%s): %w", recap_errors.CodeOf(err), err)
			}
			return printJSON(httpdto.SubscriptionResponse{Success: true, Subscription: &view})
		},
	}
	cmd.Flags().DurationVar(&within, "within", 0, "Only renew when the subscription expires within this window")
	return cmd
}

func statusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the locally mirrored subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.resolveUser(cmd.Context())
			if err != nil {
				return err
			}
			row, err := c.app.Subscriptions.Get(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("no subscription for %s: %w", userID, err)
			}
			return printJSON(httpdto.ToSubscriptionStatusDTO(row))
		},
	}
}

func quotaCmd(c *cli) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show or reset the user's draft generation quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := c.resolveUser(ctx)
			if err != nil {
				return err
			}
			if reset {
				if err := c.app.Limiter.ResetUser(ctx, userID.String()); err != nil {
					return err
				}
			}
			status, err := c.app.Limiter.GetDraftStatus(ctx, userID.String())
			if err != nil {
				return err
			}
			fmt.Printf("drafts: %d of %d left, window resets in %s\n", status.Remaining, status.Limit, status.ResetIn.Round(time.Second))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the current window first")
	return cmd
}
