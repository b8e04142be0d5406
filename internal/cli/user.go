package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promote/internal/ir"
)

// NewUserCommand creates the user command group. Users only serve to
// display who imported a release.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}
	cmd.AddCommand(newUserSetCommand(rootOpts))
	cmd.AddCommand(newUserRemoveCommand(rootOpts))
	return cmd
}

func newUserSetCommand(rootOpts *RootOptions) *cobra.Command {
	var u ir.UserMeta

	cmd := &cobra.Command{
		Use:           "set <user-id>",
		Short:         "Add or update a user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			u.ID = args[0]
			if err := a.store.PutUser(cmd.Context(), u); err != nil {
				return formatter.Fail(err)
			}
			if formatter.Format == "json" {
				return formatter.Success(u)
			}
			fmt.Fprintf(formatter.Writer, "✓ User %s saved\n", u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&u.Email, "email", "", "email address")
	cmd.Flags().StringVar(&u.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&u.LastName, "last-name", "", "last name")
	return cmd
}

func newUserRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <user-id>",
		Short:         "Remove a user; their releases keep the raw id",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.DeleteUser(cmd.Context(), args[0]); err != nil {
				return formatter.Fail(err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]string{"id": args[0]})
			}
			fmt.Fprintf(formatter.Writer, "✓ User %s removed\n", args[0])
			return nil
		},
	}
}
