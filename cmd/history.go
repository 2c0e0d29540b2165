package cmd

import (
	"fmt"
	"net/http"
	"time"

	"mirrorwatch/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyN int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		var histories []model.History
		if err := callDaemon(http.MethodGet, fmt.Sprintf("/history?n=%d", historyN), &histories); err != nil {
			return err
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range histories {
			status := green.Render("✓")
			if h.Status == model.StatusFailed {
				status = red.Render("✗")
			}

			took := (time.Duration(h.DurationMs) * time.Millisecond).String()
			fmt.Printf("%s [%s] %-8s exit %-3d %-8s %s\n",
				status,
				h.StartedAt.Format("2006-01-02 15:04:05"),
				h.Reason,
				h.ExitCode,
				took,
				gray.Render(humanize.Time(h.StartedAt)),
			)

			if h.ErrMsg != "" {
				fmt.Println("  " + red.Render(h.ErrMsg))
			}
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	rootCmd.AddCommand(historyCmd)
}
