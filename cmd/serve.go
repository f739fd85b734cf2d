package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/catalog"
	"github.com/choosepower/tdsp-resolver/internal/resolver"
	"github.com/choosepower/tdsp-resolver/internal/server"
	"github.com/choosepower/tdsp-resolver/pkg/esiid"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the territory resolution HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		res := resolver.New(cat, registry, cfg.Resolver, cfg.RateLimit, cfg.Registry.MaxAttempts)

		serverCfg := cfg.Server
		if servePort != 0 {
			serverCfg.Port = servePort
		}

		srv := server.New(res, defaultPlanFinder(), serverCfg, cfg.RateLimit)
		zap.L().Info("starting resolution service",
			zap.Int("port", serverCfg.Port),
			zap.String("catalog_version", cat.Version()),
		)
		return srv.Start(ctx)
	},
}

// defaultPlanFinder returns the static plan counts used until the pricing
// service integration lands.
func defaultPlanFinder() server.PlanFinder {
	return server.NewStaticPlanFinder(map[string]int{
		catalog.OncorID:       112,
		catalog.CenterPointID: 98,
		catalog.AEPCentralID:  64,
		catalog.AEPNorthID:    57,
		catalog.TNMPID:        41,
	}, 25)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
