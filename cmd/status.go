package cmd

import (
	"fmt"
	"net/http"

	"mirrorwatch/internal/daemon"
	"mirrorwatch/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the running watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp daemon.StatusResponse
		if err := callDaemon(http.MethodGet, "/status", &resp); err != nil {
			return err
		}

		w := resp.Watch
		status := string(w.Status)
		switch w.Status {
		case model.WatchStatusWatching:
			status = green.Render(status)
		case model.WatchStatusDegraded:
			status = red.Render(status)
		}

		lastSync := "-"
		if w.LastSync != nil {
			lastSync = humanize.Time(*w.LastSync)
		}

		fmt.Printf("%s   %s\n", cyan.Render("status"), status)
		fmt.Printf("%s   %s\n", cyan.Render("source"), w.Source)
		fmt.Printf("%s   %s\n", cyan.Render("target"), w.Target)
		fmt.Printf("%s   %t\n", cyan.Render("full  "), w.FullCopy)
		fmt.Printf("%s   %s (%s)\n", cyan.Render("start "),
			humanize.Time(w.StartedAt), w.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("%s   %s, pending: %t\n", cyan.Render("sync  "), resp.SyncState, resp.Pending)
		fmt.Printf("%s   %s\n", cyan.Render("last  "), lastSync)
		fmt.Printf("%s   events %s, synced %d, failed %d, errors %d\n", cyan.Render("counts"),
			humanize.Comma(int64(w.Events)), w.Synced, w.Failed, w.Errors)

		if w.LastError != "" {
			fmt.Printf("%s   %s\n", cyan.Render("error "), red.Render(w.LastError))
		}

		if resp.Stats != nil {
			fmt.Println(gray.Render(fmt.Sprintf("history: %d runs, %d succeeded, %d failed",
				resp.Stats.Total, resp.Stats.Success, resp.Stats.Failed)))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
