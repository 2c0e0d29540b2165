package cmd

import (
	"fmt"
	"os"

	"mirrorwatch/internal/autostart"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start the watcher automatically at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		workDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}

		as := autostart.New()
		if err := as.Install(autostart.Service{ExecPath: execPath, WorkDir: workDir}); err != nil {
			return err
		}

		fmt.Println("mirrorwatch registered for autostart")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
