package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/devblac/logsync/internal/engine"
	"github.com/devblac/logsync/internal/source/evm"
	"github.com/devblac/logsync/internal/spec"
	"github.com/devblac/logsync/internal/storage"
	"github.com/spf13/cobra"
)

const pingTimeout = 8 * time.Second

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config, specs and schema and ping RPC endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		a, err := loadApp(cfgPath, spec.Filter{})
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Fprintf(out, "config OK (version %d, %d specs, %d tables in schema)\n",
			a.cfg.Version, len(a.specs), len(a.schema.Tables))

		failures := 0
		abiPaths := map[string]string{}
		for _, ct := range a.cfg.Contracts {
			abiPaths[ct.Name] = ct.ABIPath
		}

		for _, s := range a.specs {
			tbl, ok := a.schema.Table(s.TableName())
			if !ok {
				failures++
				fmt.Fprintf(out, "- spec %s: ERROR table %s missing from schema\n", s.ID(), s.TableName())
				continue
			}
			if cols := storage.DataColumns(tbl); len(cols) < len(s.Fields) {
				failures++
				fmt.Fprintf(out, "- spec %s: ERROR table %s has %d data columns for %d fields\n",
					s.ID(), s.TableName(), len(cols), len(s.Fields))
				continue
			}
			if path := abiPaths[s.ContractName]; path != "" {
				parsed, err := spec.LoadABI(path)
				if err == nil {
					err = spec.CheckABI(s, parsed)
				}
				if err != nil {
					failures++
					fmt.Fprintf(out, "- spec %s: ERROR %v\n", s.ID(), err)
					continue
				}
			}
			fmt.Fprintf(out, "- spec %s -> %s OK\n", s.ID(), s.TableName())
		}

		for _, g := range a.groups {
			router, err := evm.NewRouter(g.Specs)
			if err != nil {
				failures++
				fmt.Fprintf(out, "- chain %s: ERROR %v\n", g.Chain, err)
				continue
			}
			chainID, err := pingChain(cmd.Context(), a, g)
			if err != nil {
				failures++
				fmt.Fprintf(out, "- chain %s: ERROR %v\n", g.Chain, err)
				continue
			}
			fmt.Fprintf(out, "- chain %s: chainId %s, %d addresses OK\n", g.Chain, chainID, len(router.Addresses()))
			printMatchers(out, router)
		}

		if failures > 0 {
			return fmt.Errorf("validate: %d check(s) failed", failures)
		}

		fmt.Fprintln(out, "validate: success")
		return nil
	},
}

// printMatchers lists the address and topic0 each spec is filtered on.
func printMatchers(w io.Writer, r *evm.Router) {
	for _, m := range r.Matchers() {
		fmt.Fprintf(w, "    %s: %s topic0 %s\n", m.Spec.ID(), m.Address().Hex(), m.Topic0().Hex())
	}
}

func pingChain(ctx context.Context, a *app, g engine.Group) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	c, err := dialChain(ctx, a.cfg, g.Chain, nil)
	if err != nil {
		return "", err
	}
	defer c.Close()

	id, err := c.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("call eth_chainId: %w", err)
	}
	return id.String(), nil
}
