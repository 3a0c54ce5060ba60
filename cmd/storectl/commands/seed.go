package commands

import (
	"fmt"

	"storefront/internal/database"
	"storefront/internal/repository"
	"storefront/internal/seed"

	"github.com/spf13/cobra"
)

var skipMigrate bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the admin user and the starter catalog",
	Long: `Create the admin account named by SEED_ADMIN_EMAIL and the starter
categories and products. Existing rows are left untouched, so the command
can be run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		if !skipMigrate {
			if err := database.RunMigrations(e.db.DB(), e.logger); err != nil {
				return err
			}
		}

		conn := e.db.DB()
		seeder := seed.NewSeeder(
			repository.NewUserRepository(conn),
			repository.NewCategoryRepository(conn),
			repository.NewProductRepository(conn),
			e.cfg.Security.BcryptCost,
			e.logger,
		)

		report, err := seeder.Run(cmd.Context(), e.cfg.Seed)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "admin created: %t, categories created: %d, products created: %d\n",
			report.AdminCreated, report.CategoriesCreated, report.ProductsCreated)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply pending migrations first")
}
