package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/callq/internal/config"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Dotenv string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a config file and print the effective config",
		Long: `Load a config file the way call does (defaults, then the file, then
CALLQ_* environment variables, with an optional .env file loaded first),
validate it and print the result.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dotenv, "env", ".env", "dotenv file to load before reading the environment")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("config file not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "config file not found", err)
	}
	formatter.VerboseLog("loading %s (dotenv %s)", path, opts.Dotenv)

	cfg, err := config.Load(config.Options{Path: path, DotenvPath: opts.Dotenv})
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			_ = formatter.Error(ErrCodeInvalidConfig, verr.Error(), verr.Details)
			return WrapExitError(ExitFailure, "config is invalid", err)
		}
		_ = formatter.Error(ErrCodeInvalidConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if opts.Format == "json" {
		return formatter.Success(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render config", err)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s is valid\n\n", path)
	_, err = w.Write(data)
	return err
}
