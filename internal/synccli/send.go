package synccli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		asPrincipal string
		withPeer    string
		subjectID   string
		imageRef    string
	)

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send a message without opening the chat client",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			if content == "" && imageRef == "" {
				return fmt.Errorf("nothing to send: pass a message or --image")
			}
			if asPrincipal == "" || withPeer == "" {
				return fmt.Errorf("--as and --with are required")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()

			eng, err := a.startEngine(ctx, asPrincipal)
			if err != nil {
				return err
			}
			defer eng.Close()

			conv, err := eng.GetOrCreateConversation(ctx, subjectID, withPeer)
			if err != nil {
				return err
			}

			timeline, err := eng.OpenTimeline(conv.ID)
			if err != nil {
				return err
			}
			defer timeline.Close()

			if imageRef != "" {
				if _, err := timeline.SendImage(imageRef); err != nil {
					return err
				}
			} else {
				if _, err := timeline.Send(content); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent to %s (conversation %s)\n", withPeer, conv.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&asPrincipal, "as", "", "Sending principal")
	cmd.Flags().StringVar(&withPeer, "with", "", "Receiving principal")
	cmd.Flags().StringVar(&subjectID, "subject", "general", "Listing the conversation is about")
	cmd.Flags().StringVar(&imageRef, "image", "", "Path of an image to upload and send")

	return cmd
}
