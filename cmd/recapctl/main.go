package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"recap-mail/config"
	"recap-mail/internal/app"
	"recap-mail/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var Version = "dev"

type cli struct {
	user    string
	verbose bool
	app     *app.App
}

func main() {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "recapctl",
		Short:         "Operate meeting subscriptions and drafts for a single user",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l := logger.NewNop()
			if c.verbose {
				l = logger.New(logger.DevelopmentMode)
			}
			a, err := app.Build(cmd.Context(), config.LoadConfig(), l)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&c.user, "user", "u", "", "User id, or the Google account id of the user")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log pipeline events to stderr")

	rootCmd.AddCommand(ensureCmd(c))
	rootCmd.AddCommand(renewCmd(c))
	rootCmd.AddCommand(statusCmd(c))
	rootCmd.AddCommand(draftCmd(c))
	rootCmd.AddCommand(tokenCmd(c))
	rootCmd.AddCommand(watchCmd(c))
	rootCmd.AddCommand(quotaCmd(c))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveUser accepts either the local user id or the connected account id.
func (c *cli) resolveUser(ctx context.Context) (uuid.UUID, error) {
	if c.user == "" {
		return uuid.Nil, fmt.Errorf("--user is required")
	}
	if id, err := uuid.Parse(c.user); err == nil {
		return id, nil
	}
	u, err := c.app.Users.GetUserByExternalID(ctx, c.user)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve user %q: %w", c.user, err)
	}
	return u.ID, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
