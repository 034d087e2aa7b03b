package cli

import (
	"log"

	"github.com/spf13/cobra"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/config"
	"dopamine-dashboard/internal/domain"
)

// NewUserCmd groups account management commands.
func NewUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd(configPath))
	return cmd
}

func newUserCreateCmd(configPath *string) *cobra.Command {
	var in app.RegisterInput
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a password account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			user, err := svc.auth.CreateUser(cmd.Context(), in, role)
			if err != nil {
				return err
			}
			log.Printf("created %s %s (%s)", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (min 8 characters)")
	cmd.Flags().StringVar(&role, "role", domain.RoleStudent, "student or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
