package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Ask the running watcher to sync now",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Status string `json:"status"`
		}
		if err := callDaemon(http.MethodPost, "/sync", &resp); err != nil {
			return err
		}

		fmt.Println("sync " + resp.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}
