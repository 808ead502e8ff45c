package main

import (
	"errors"
	"fmt"

	hop "github.com/branched-services/go-hop"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Discard the pending chain as the configured admin",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg.Contract.Admin == "" {
			return errors.New("contract.admin is not set")
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, a.Close())
		}()

		resp, err := a.contract.CancelChain(cmd.Context(), a.env(), hop.MessageInfo{Sender: cfg.Contract.Admin})
		if err != nil {
			return err
		}
		dropped, _ := resp.Attribute("dropped")
		fmt.Fprintf(cmd.OutOrStdout(), "dropped %s pending command(s)\n", dropped)
		return nil
	},
}
