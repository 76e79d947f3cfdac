package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/devblac/logsync/internal/engine"
	"github.com/devblac/logsync/internal/spec"
	"github.com/devblac/logsync/internal/storage"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show resume points and lag per spec",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(cfgPath, spec.Filter{Contract: flagContract, Spec: flagSpec})
		if err != nil {
			return err
		}

		store, err := storage.Open(a.cfg.Database)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHAIN\tSPEC\tTABLE\tRESUME\tHEAD\tLAG")
		for _, g := range a.groups {
			head, headErr := chainHead(ctx, a, g)
			for _, s := range g.Specs {
				resume, err := engine.ResumePoint(ctx, store, s)
				if err != nil {
					return err
				}
				if headErr != nil {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t?\t?\n", g.Chain, s.ID(), s.TableName(), resume)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n", g.Chain, s.ID(), s.TableName(), resume, head, Lag(resume, head))
			}
			if headErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "chain %s: head unavailable: %v\n", g.Chain, headErr)
			}
		}
		return w.Flush()
	},
}

func init() {
	stateCmd.Flags().StringVar(&flagContract, "contract", "", "Only show specs of this contract")
	stateCmd.Flags().StringVar(&flagSpec, "spec", "", "Only show this spec (requires --contract)")
}

// Lag is the number of blocks from resume through head still to be synced.
func Lag(resume, head uint64) uint64 {
	if resume > head {
		return 0
	}
	return head - resume + 1
}

func chainHead(ctx context.Context, a *app, g engine.Group) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	c, err := dialChain(ctx, a.cfg, g.Chain, nil)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	return c.BlockNumber(ctx)
}
