// Package synccli implements the syncengine command line interface.
package synccli

import (
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "syncengine",
		Short:         "Real-time messaging sync engine",
		Long:          "syncengine keeps conversations, messages and notifications in sync\nbetween the local client state and the backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	cmd.PersistentFlags().String("config", "", "Config file path")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newChatCmd(),
		newSendCmd(),
		newConversationsCmd(),
		newNotifyCmd(),
	)

	return cmd
}
