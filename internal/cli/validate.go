package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promote/internal/source"
)

// FileError is one flow file that failed to load.
type FileError struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Flows  int         `json:"flows"`
	Errors []FileError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <checkout-dir>",
		Short: "Validate the flow definition files of a repository checkout",
		Long: `Load every flow definition file (.yaml, .yml, .json, .cue) under a
directory and report the files that cannot be loaded.

Nothing is read from or written to the database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := source.FindFlowFiles(dir)
	if err != nil {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("cannot read %s: %v", dir, err))
	}
	formatter.VerboseLog("Found %d flow file(s) in %s", len(files), dir)

	state, err := source.LoadDir(dir)
	if errors.Is(err, source.ErrNoFlows) {
		return outputValidateError(formatter, ErrCodeLoadFailed, err.Error())
	}
	if err != nil {
		fileErrs := collectFileErrors(err)
		if len(fileErrs) == 0 {
			return outputValidateError(formatter, ErrCodeLoadFailed, err.Error())
		}
		return outputValidationErrors(formatter, fileErrs)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Flows: len(state.Flows)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d flow(s) valid\n", len(state.Flows))
	return nil
}

// collectFileErrors flattens the joined per-file errors of source.LoadDir.
func collectFileErrors(err error) []FileError {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var out []FileError
	for _, e := range errs {
		var loadErr *source.LoadError
		if errors.As(e, &loadErr) {
			out = append(out, FileError{Path: loadErr.Path, Line: loadErr.Line, Message: loadErr.Message})
		}
	}
	return out
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs per-file errors.
func outputValidationErrors(formatter *OutputFormatter, errs []FileError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeLoadFailed,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", e.Path, e.Line)
		} else {
			fmt.Fprintln(formatter.Writer, e.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", ErrCodeLoadFailed, e.Message)
	}

	return failure
}
