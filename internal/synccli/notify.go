package synccli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haggle-app/syncengine/internal/models"
)

func newNotifyCmd() *cobra.Command {
	var (
		toPrincipal string
		noteType    string
		title       string
		body        string
		payload     string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Deliver a notification to a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if toPrincipal == "" || title == "" {
				return fmt.Errorf("--to and --title are required")
			}
			if !models.ValidNotificationType(models.NotificationType(noteType)) {
				return fmt.Errorf("unknown notification type %q", noteType)
			}
			if payload != "" && !json.Valid([]byte(payload)) {
				return fmt.Errorf("--payload must be valid JSON")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			note := &models.Notification{
				PrincipalID: toPrincipal,
				Type:        models.NotificationType(noteType),
				Title:       title,
				Body:        body,
			}
			if payload != "" {
				note.Payload = json.RawMessage(payload)
			}

			if err := a.backend.CreateNotification(context.Background(), note); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "notification %s delivered to %s\n", note.ID, toPrincipal)
			return nil
		},
	}

	cmd.Flags().StringVar(&toPrincipal, "to", "", "Receiving principal")
	cmd.Flags().StringVar(&noteType, "type", string(models.NotificationBroadcast), "Notification type")
	cmd.Flags().StringVar(&title, "title", "", "Notification title")
	cmd.Flags().StringVar(&body, "body", "", "Notification body")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")

	return cmd
}
