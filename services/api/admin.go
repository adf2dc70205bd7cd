package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/repository"
	"github.com/yogastudio/internal/service"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrator account management",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	Long:  `Creates an administrator. Nothing happens when the email is already registered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		emailAddr, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")
		if emailAddr == "" || password == "" {
			return fmt.Errorf("--email and --password are required")
		}

		pool, err := connectPool()
		if err != nil {
			return err
		}
		defer pool.Close()

		users := repository.NewUserRepository(pool)
		tokens := auth.NewTokenCodec([]byte(cfg.JWT.Secret), cfg.JWT.Expiration)
		svc := service.NewAuthService(users, tokens, nil, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		created, err := svc.BootstrapAdmin(ctx, emailAddr, password, firstName, lastName)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created\n", emailAddr)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already registered\n", emailAddr)
		}
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().String("email", "", "administrator email")
	adminCreateCmd.Flags().String("password", "", "administrator password")
	adminCreateCmd.Flags().String("first-name", "Admin", "first name")
	adminCreateCmd.Flags().String("last-name", "Admin", "last name")
	adminCmd.AddCommand(adminCreateCmd)
}
