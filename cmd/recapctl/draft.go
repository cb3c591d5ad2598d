package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"recap-mail/internal/services"
	"recap-mail/pkg/events"

	"github.com/spf13/cobra"
)

func draftCmd(c *cli) *cobra.Command {
	var (
		meetingID    string
		transcriptID string
		file         string
		in           services.DraftContext
	)

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Generate a follow up email draft from a transcript file",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.resolveUser(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			in.UserID = userID
			in.Transcript = string(raw)
			if transcriptID == "" {
				transcriptID = file
			}

			res := c.app.Drafts.GenerateDraft(cmd.Context(), meetingID, transcriptID, in)
			if err := printJSON(res); err != nil {
				return err
			}
			return res.Err()
		},
	}
	cmd.Flags().StringVar(&meetingID, "meeting", "", "Meeting id the draft belongs to")
	cmd.Flags().StringVar(&transcriptID, "transcript-id", "", "Transcript id (defaults to the file name)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the plain text transcript")
	cmd.Flags().StringVar(&in.Topic, "topic", "", "Meeting topic")
	cmd.Flags().StringSliceVar(&in.Attendees, "attendee", nil, "Attendee, repeatable")
	cmd.Flags().StringVar(&in.Voice, "voice", "", "Voice: formal, friendly or brief")
	_ = cmd.MarkFlagRequired("meeting")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func tokenCmd(c *cli) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.resolveUser(cmd.Context())
			if err != nil {
				return err
			}
			token, err := c.app.Auth.IssueAccessToken(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func watchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream the user's meeting and draft events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.resolveUser(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			channel := events.UserChannel(userID)
			err = c.app.Broker.Subscribe(ctx, channel, func(_ context.Context, e events.Event) error {
				return printJSON(e)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "watching %s, Ctrl-C to stop\n", channel)
			<-ctx.Done()
			return nil
		},
	}
}
