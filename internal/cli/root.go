package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/promote/internal/config"
	"github.com/roach88/promote/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	EnvFile   string
	DB        string
	RedisAddr string
	LockTTL   time.Duration

	// Config is resolved before any subcommand runs.
	Config config.Config

	// Logger is installed before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the promote CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "promote",
		Version: ir.EngineVersion,
		Short:   "promote - flow promotion between environments",
		Long: `Promote flow definitions from a git repository into a live project,
or roll a project back to an earlier release.

Every release is planned as a diff between the live project and the
desired state, applied operation by operation, and recorded with a
snapshot of the project it produced.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the environment")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite database path (env "+config.EnvDB+")")
	cmd.PersistentFlags().StringVar(&opts.RedisAddr, "redis", "", "Redis address for project locks (env "+config.EnvRedisAddr+")")
	cmd.PersistentFlags().DurationVar(&opts.LockTTL, "lock-ttl", 0, "Redis lock lease (env "+config.EnvLockTTL+")")

	// Add subcommands
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewReleaseCommand(opts))
	cmd.AddCommand(NewRepoCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewFlowsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads configuration, applies flag overrides and installs the
// logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		_ = o.formatter(cmd).Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DB = o.DB
	}
	if flags.Changed("redis") {
		cfg.RedisAddr = o.RedisAddr
	}
	if flags.Changed("lock-ttl") {
		if err := config.CheckLockTTL(o.LockTTL); err != nil {
			_ = o.formatter(cmd).Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "configuration", err)
		}
		cfg.LockTTL = o.LockTTL
	}
	o.Config = cfg

	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// formatter builds the OutputFormatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
