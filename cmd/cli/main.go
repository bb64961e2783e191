package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	config "github.com/cochaviz/sdc-clients/config"
	"github.com/cochaviz/sdc-clients/internal/logging"
	"github.com/cochaviz/sdc-clients/internal/vmapi"
)

const defaultLogLevel = "warning"

// Exit codes.
const (
	exitFailure      = 1
	exitUsage        = 2
	exitTransport    = 3
	exitPartialBatch = 4
	exitInterrupted  = 130
)

var (
	errUsage        = errors.New("invalid usage")
	errPartialBatch = errors.New("some vm records could not be normalised")
)

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelWarn)

	a := &app{
		levelVar: &levelVar,
		logger:   logging.New(logging.ModeText, os.Stderr, &levelVar),
	}
	slog.SetDefault(a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(a)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return
	}
	code := exitCode(err)
	switch code {
	case exitInterrupted:
		a.logger.Warn("command interrupted", "error", err)
	case exitPartialBatch:
		a.logger.Warn("command completed with failures", "error", err)
	default:
		a.logger.Error("command execution failed", "error", err)
	}
	os.Exit(code)
}

func exitCode(err error) int {
	var transport *vmapi.TransportError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, errPartialBatch):
		return exitPartialBatch
	case errors.As(err, &transport):
		return exitTransport
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		return exitFailure
	}
}

// app carries state resolved once the persistent flags are parsed.
type app struct {
	levelVar *slog.LevelVar
	logger   *slog.Logger
	settings config.Settings

	configPath string
	vmapiURL   string
	logLevel   string
	logFormat  string
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vmapi",
		Short:         "Query VMAPI and print normalised machine descriptors",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&a.vmapiURL, "vmapi-url", "", "VMAPI endpoint (overrides "+config.EnvVMAPIURL+")")
	flags.StringVar(&a.logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log format (text, json)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.resolve(cmd)
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	root.AddCommand(
		newMachinesCommand(a),
		newVMsCommand(a),
	)
	return root
}

// resolve layers defaults, file, environment and flags into a.settings and
// reconfigures the logger accordingly.
func (a *app) resolve(cmd *cobra.Command) error {
	settings, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	flags := cmd.Flags()
	if flags.Changed("vmapi-url") {
		settings.VMAPIURL = a.vmapiURL
	}
	if flags.Changed("log-level") {
		settings.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		settings.Log.Format = a.logFormat
	}

	level, err := logging.ParseLevel(settings.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	mode, err := logging.ParseMode(settings.Log.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	a.levelVar.Set(level)
	a.logger = logging.New(mode, cmd.ErrOrStderr(), a.levelVar)
	slog.SetDefault(a.logger)

	a.settings = settings
	return nil
}

func (a *app) inventory() (*config.Inventory, error) {
	if err := a.settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return config.NewInventory(a.settings, a.logger)
}
