package autostart

import (
	"fmt"
	"os/exec"
)

const taskName = "MirrorWatch"

type WindowsAutoStarter struct{}

// taskCommand changes into the working directory first so .env and sync.ps1
// resolve the same way as in an interactive shell.
func taskCommand(svc Service) string {
	return fmt.Sprintf(`cmd /c cd /d "%s" && "%s" watch`, svc.WorkDir, svc.ExecPath)
}

func (w *WindowsAutoStarter) Install(svc Service) error {
	cmd := exec.Command("schtasks", "/create",
		"/TN", taskName,
		"/TR", taskCommand(svc),
		"/SC", "ONLOGON",
		"/F")

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to register task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	cmd := exec.Command("schtasks", "/DELETE", "/TN", taskName, "/F")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to remove task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	cmd := exec.Command("schtasks", "/Query", "/TN", taskName)
	if err := cmd.Run(); err != nil {
		return false, nil
	}

	return true, nil
}
