package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/choosepower/tdsp-resolver/internal/model"
	"github.com/choosepower/tdsp-resolver/internal/resolver"
	"github.com/choosepower/tdsp-resolver/pkg/esiid"
)

var resolveAddress string

var resolveCmd = &cobra.Command{
	Use:   "resolve <zip>",
	Short: "Resolve a ZIP (optionally with an address) to its territory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		cat, err := loadCatalog(ctx, store)
		if err != nil {
			return err
		}

		registry := esiid.NewClient(cfg.Registry.BaseURL,
			esiid.WithAPIKey(cfg.Registry.APIKey),
			esiid.WithRateLimit(cfg.Registry.RequestsPerSec),
			esiid.WithTimeout(cfg.Registry.Timeout),
		)

		limitCfg := cfg.RateLimit
		limitCfg.Disabled = true // one-shot invocation, nothing to throttle
		res := resolver.New(cat, registry, cfg.Resolver, limitCfg, cfg.Registry.MaxAttempts)

		result, err := res.Resolve(ctx, resolver.Request{
			Zip:     args[0],
			Address: resolveAddress,
		})
		if err != nil {
			var resErr *model.ResolutionError
			if errors.As(err, &resErr) {
				out, _ := json.MarshalIndent(map[string]any{
					"errorType": resErr.Type,
					"message":   resErr.Message,
					"utility":   resErr.Utility,
				}, "", "  ")
				fmt.Fprintln(os.Stdout, string(out))
				if resErr.Type == model.ErrNonDeregulated {
					return nil
				}
			}
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAddress, "address", "", "street address for split-ZIP disambiguation")
	rootCmd.AddCommand(resolveCmd)
}
