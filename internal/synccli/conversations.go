package synccli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newConversationsCmd() *cobra.Command {
	var asPrincipal string

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List conversations for a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asPrincipal == "" {
				return fmt.Errorf("--as is required")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			summaries, err := a.backend.ListConversations(context.Background(), asPrincipal)
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no conversations")
				return nil
			}

			for _, s := range summaries {
				preview := s.Preview
				if s.IsImagePreview() {
					preview = "[image]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  with=%s subject=%s unread=%d  %s\n",
					s.ID, s.Other(asPrincipal), s.SubjectID, s.UnreadCount, preview)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asPrincipal, "as", "", "Principal whose conversations to list")

	return cmd
}
