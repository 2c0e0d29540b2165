package autostart

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const unitName = "mirrorwatch.service"

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=mirrorwatch directory mirror
After=default.target

[Service]
WorkingDirectory={{.WorkDir}}
ExecStart={{.ExecPath}} watch
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`))

type LinuxAutoStarter struct {
	// Dir overrides ~/.config/systemd/user.
	Dir string

	// run executes systemctl; nil means exec.Command.
	run func(args ...string) ([]byte, error)
}

func renderUnit(svc Service) ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, svc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *LinuxAutoStarter) systemctl(args ...string) ([]byte, error) {
	if l.run != nil {
		return l.run(args...)
	}
	return exec.Command("systemctl", append([]string{"--user"}, args...)...).CombinedOutput()
}

func (l *LinuxAutoStarter) unitPath() (string, error) {
	dir := l.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "systemd", "user")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, unitName), nil
}

func (l *LinuxAutoStarter) Install(svc Service) error {
	path, err := l.unitPath()
	if err != nil {
		return err
	}

	unit, err := renderUnit(svc)
	if err != nil {
		return fmt.Errorf("failed to render unit file: %w", err)
	}

	if err := os.WriteFile(path, unit, 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	cmds := [][]string{
		{"daemon-reload"},
		{"enable", unitName},
		{"start", unitName},
	}

	for _, args := range cmds {
		if out, err := l.systemctl(args...); err != nil {
			return fmt.Errorf("failed to run systemctl %v: %w\n%s", args, err, out)
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	_, _ = l.systemctl("stop", unitName)
	_, _ = l.systemctl("disable", unitName)

	path, err := l.unitPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.unitPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
