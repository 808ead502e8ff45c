package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/branched-services/go-hop/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the contract over HTTP until interrupted",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, a.Close())
		}()

		a.logger.Info("starting hopd",
			zap.String("contract", cfg.ContractAddress().Hex()),
			zap.String("chain_id", cfg.Contract.ChainID),
			zap.String("store", cfg.Store.Kind),
		)

		srv := server.New(a.contract, cfg.ContractAddress(), cfg.Contract.ChainID,
			server.WithLogger(a.logger.Named("http")),
		)
		return srv.ListenAndServe(ctx, cfg.Server.Listen, cfg.Server.ShutdownTimeout)
	},
}
