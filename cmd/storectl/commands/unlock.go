package commands

import (
	"fmt"

	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock <email>",
	Short: "Clear a login lockout",
	Long: `Unlock an account that was locked after repeated failed logins and reset
its failed attempt counter.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		users := service.NewUserService(repository.NewUserRepository(e.db.DB()))
		user, err := users.UnlockByEmail(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("unlock %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s (%s)\n", user.Email, user.ID)
		return nil
	},
}
