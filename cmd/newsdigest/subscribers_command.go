package main

import (
	"time"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
)

func newSubscribersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Inspect and manage newsletter subscribers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every subscriber",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				subscribers, err := a.Registry.List(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.emit(cmd, subscribers, func() tableView {
					rows := make([][]string, 0, len(subscribers))
					for _, s := range subscribers {
						rows = append(rows, []string{s.Email, yesNo(s.IsConfirmed), yesNo(s.IsActive), s.SubscribedAt.Format(time.DateOnly)})
					}
					return tableView{headers: []string{"Email", "Confirmed", "Active", "Subscribed"}, rows: rows}
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <email>",
		Short: "Register an email and send the confirmation link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				result, err := a.Registry.Signup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() tableView {
					return tableView{title: result.Message, headers: []string{"Status", "Confirmation sent"},
						rows: [][]string{{result.Status, yesNo(result.ConfirmationSent)}}}
				})
			})
		},
	})
	return cmd
}
