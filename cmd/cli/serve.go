package main

import (
	"github.com/limaJavier/seating/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the seating planner over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			solver, err := app.config.NewSolver()
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Solver:       solver,
				Formulation:  app.config.ParsedFormulation(),
				Limits:       app.config.Limits(),
				MaxTimeLimit: app.config.Server.MaxTimeLimit,
				ReadTimeout:  app.config.Server.ReadTimeout,
				WriteTimeout: app.config.Server.WriteTimeout,
				Logger:       app.logger,
			})
			return srv.Start(cmd.Context(), app.config.Server.Address)
		},
	}

	cmd.Flags().String("address", ":8080", "Address the HTTP server listens on")
	bind(app.viper, cmd.Flags().Lookup("address"), "server.address")

	return cmd
}
