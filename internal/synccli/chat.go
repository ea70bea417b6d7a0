package synccli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haggle-app/syncengine/internal/chatui"
	"github.com/haggle-app/syncengine/internal/config"
)

func newChatCmd() *cobra.Command {
	var (
		asPrincipal string
		withPeer    string
		subjectID   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat client",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sessions := config.NewSessionStore("")
			session, err := sessions.Load()
			if err != nil {
				return err
			}

			principal := asPrincipal
			if principal == "" {
				principal = session.PrincipalID
			}
			if principal == "" {
				return fmt.Errorf("no principal: pass --as or sign in first")
			}

			if session.PrincipalID != principal {
				session.SignIn(principal, principal)
			}
			if err := sessions.Save(session); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, err := a.startEngine(ctx, principal)
			if err != nil {
				return err
			}
			defer eng.Close()

			if withPeer != "" {
				conv, err := eng.GetOrCreateConversation(ctx, subjectID, withPeer)
				if err != nil {
					return err
				}
				session.SetConversation(conv.ID)
				if err := sessions.Save(session); err != nil {
					return err
				}
			}

			return chatui.Run(eng, chatui.Config{
				RefreshInterval: a.cfg.TUI.RefreshInterval,
				ShowTimestamps:  a.cfg.TUI.ShowTimestamps,
			})
		},
	}

	cmd.Flags().StringVar(&asPrincipal, "as", "", "Principal to sign in as")
	cmd.Flags().StringVar(&withPeer, "with", "", "Open a conversation with this principal")
	cmd.Flags().StringVar(&subjectID, "subject", "general", "Listing the conversation is about")

	return cmd
}
