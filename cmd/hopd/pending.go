package main

import (
	"encoding/json"
	"fmt"

	hop "github.com/branched-services/go-hop"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// pendingView is the printed form of a pending chain.
type pendingView struct {
	Target    string           `json:"target"`
	Count     int              `json:"count"`
	Remaining []hop.ExecuteMsg `json:"remaining"`
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print the pending chain held in the configured store",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, a.Close())
		}()

		p, err := a.contract.Pending(cmd.Context())
		if err != nil {
			return err
		}
		msgs, err := hop.WrapCommands(p.Remaining)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(pendingView{
			Target:    p.Target.Hex(),
			Count:     p.Len(),
			Remaining: msgs,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
