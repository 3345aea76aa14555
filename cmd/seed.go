package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/runclub/internal/seed"
	"github.com/Shivanand-hulikatti/runclub/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create sample users and runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := openStores(ctx, cfg.Database, true)
		if err != nil {
			return err
		}
		defer st.close()

		res, err := seed.Seed(ctx,
			service.NewRunService(st.runs),
			service.NewAccountService(st.users, cfg.Auth.BcryptCost),
		)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %d users and %d runs (password for all users: %s)\n",
			res.UsersCreated, res.RunsCreated, seed.SamplePassword)
		return nil
	},
}
