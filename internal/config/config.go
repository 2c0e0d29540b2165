package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	WatchModePolling = "polling"
	WatchModeNative  = "native"

	BackendCommand = "command"
	BackendBuiltin = "builtin"
)

type Config struct {
	SourceDir       string        `mapstructure:"source_dir"`
	TargetDir       string        `mapstructure:"target_dir"`
	FullCopy        bool          `mapstructure:"-"`
	IgnoreList      []string      `mapstructure:"ignore_list"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	SettleThreshold time.Duration `mapstructure:"settle_threshold"`
	SettlePoll      time.Duration `mapstructure:"settle_poll"`
	WatchMode       string        `mapstructure:"watch_mode"`
	BufferSize      int           `mapstructure:"buffer_size"`
	SyncBackend     string        `mapstructure:"sync_backend"`
	SyncCommand     []string      `mapstructure:"sync_command"`
	FullCopyArgs    []string      `mapstructure:"full_copy_args"`
	MaxSuccessCode  int           `mapstructure:"max_success_code"`
	DaemonPort      int           `mapstructure:"daemon_port"`
	DBPath          string        `mapstructure:"db_path"`
	LogFile         string        `mapstructure:"log_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

var Default = Config{
	IgnoreList: []string{
		"**/node_modules/**",
		"**/dist/**",
		"**/release/**",
		"**/.git/**",
		".env",
	},
	Cooldown:        time.Second,
	PollInterval:    time.Second,
	SettleThreshold: 500 * time.Millisecond,
	SettlePoll:      100 * time.Millisecond,
	WatchMode:       WatchModePolling,
	BufferSize:      100,
	SyncBackend:     BackendCommand,
	DaemonPort:      9101,
	ShutdownTimeout: 5 * time.Second,
}

// Load reads ~/.mirrorwatch/config.yaml, a .env file in the working directory
// and the process environment, in increasing order of precedence.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".mirrorwatch")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	return LoadFrom(configDir)
}

func LoadFrom(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("cooldown", Default.Cooldown)
	v.SetDefault("poll_interval", Default.PollInterval)
	v.SetDefault("settle_threshold", Default.SettleThreshold)
	v.SetDefault("settle_poll", Default.SettlePoll)
	v.SetDefault("watch_mode", Default.WatchMode)
	v.SetDefault("buffer_size", Default.BufferSize)
	v.SetDefault("sync_backend", Default.SyncBackend)
	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("db_path", filepath.Join(configDir, "history.db"))
	v.SetDefault("shutdown_timeout", Default.ShutdownTimeout)

	command, fullCopyArgs, maxCode := defaultSyncCommand()
	v.SetDefault("sync_command", command)
	v.SetDefault("full_copy_args", fullCopyArgs)
	v.SetDefault("max_success_code", maxCode)

	v.SetEnvPrefix("MIRRORWATCH")
	v.AutomaticEnv()
	_ = v.BindEnv("source_dir", "SOURCE_DIR")
	_ = v.BindEnv("target_dir", "TARGET_DIR")
	_ = v.BindEnv("full_copy", "FULLCOPY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SourceDir = stripQuotes(cfg.SourceDir)
	cfg.TargetDir = stripQuotes(cfg.TargetDir)
	cfg.FullCopy = parseFlag(v.GetString("full_copy"))

	return &cfg, nil
}

// stripQuotes removes one pair of matching surrounding quotes, the way paths
// with spaces usually end up in .env files.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

func defaultSyncCommand() ([]string, []string, int) {
	if runtime.GOOS == "windows" {
		// robocopy reports 0-3 for successful runs
		return []string{
			"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass",
			"-File", scriptPath("sync.ps1"),
			"-sourceDir", "{source}",
			"-baseDestination", "{target}",
			"{full_copy}",
		}, []string{"-FullCopy"}, 3
	}

	return []string{"rsync", "-a", "{full_copy}", "{source}/", "{target}/"}, []string{"--delete"}, 0
}

// scriptPath resolves a helper script shipped next to the executable. It
// falls back to the bare name, which resolves against the working directory.
func scriptPath(name string) string {
	exe, err := os.Executable()
	if err != nil {
		return name
	}
	return scriptBeside(exe, name)
}

func scriptBeside(exe, name string) string {
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	path := filepath.Join(filepath.Dir(exe), name)
	if _, err := os.Stat(path); err != nil {
		return name
	}
	return path
}
