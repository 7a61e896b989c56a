package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/RyneJoanams/gulf-main-sub001/internal/app"
	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(newUserCreateCommand())
	return cmd
}

func newUserCreateCommand() *cobra.Command {
	var u model.User

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		Long:  "Create a staff account. Use it to seed the first admin before the API has any users.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			cfg, store, cleanup, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			svcs := app.NewServices(cfg, store, messaging.Nop{}, nil, zerolog.Nop())
			created, err := svcs.Users.Create(ctx, &u)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s, %s)\n", created.ID, created.Email, created.Department)
			return nil
		},
	}

	cmd.Flags().StringVar(&u.Name, "name", "", "full name")
	cmd.Flags().StringVar(&u.Email, "email", "", "login email")
	cmd.Flags().StringVar(&u.Department, "department", model.DepartmentAdmin, "department")
	cmd.Flags().StringVar(&u.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
