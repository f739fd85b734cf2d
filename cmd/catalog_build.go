package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/catalog"
	"github.com/choosepower/tdsp-resolver/internal/catalog/builder"
	"github.com/choosepower/tdsp-resolver/internal/model"
)

var (
	buildDefinitions string
	buildRoster      string
	buildZCTA        string
	buildAreas       string
	buildAreaField   string
	buildZipField    string
	buildSeed        bool
)

var catalogBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the catalog from territory definitions and a city roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if buildSeed {
			data := catalog.Seed()
			if err := store.Save(ctx, data); err != nil {
				return err
			}
			zap.L().Info("seed catalog saved", zap.String("version", data.Version))
			return nil
		}

		defsPath := buildDefinitions
		if defsPath == "" {
			defsPath = cfg.Catalog.TerritoriesFile
		}
		rosterPath := buildRoster
		if rosterPath == "" {
			rosterPath = cfg.Catalog.CitiesFile
		}
		if defsPath == "" || rosterPath == "" {
			return eris.New("catalog build requires --definitions and --roster (or config defaults)")
		}

		defs, err := builder.LoadDefinitions(defsPath)
		if err != nil {
			return err
		}
		cities, err := builder.ParseCityRoster(rosterPath)
		if err != nil {
			return err
		}

		var derived []model.ZipEntry
		var derivedSplit []model.SplitZipEntry
		if buildZCTA != "" {
			if buildAreas == "" {
				return eris.New("--zcta requires --areas (territory footprint shapefile)")
			}
			areas, err := builder.LoadServiceAreas(buildAreas, buildAreaField)
			if err != nil {
				return err
			}
			derived, derivedSplit, err = builder.AssignZips(buildZCTA, buildZipField, areas)
			if err != nil {
				return err
			}
		}

		zips, splits := builder.MergeZipAssignments(defs, derived, derivedSplit)

		data, err := builder.New(defs).Build(cities, zips, splits)
		if err != nil {
			return err
		}

		if err := store.Save(ctx, data); err != nil {
			return err
		}
		zap.L().Info("catalog built",
			zap.String("version", data.Version),
			zap.Int("territories", len(data.Territories)),
			zap.Int("cities", len(data.Cities)),
			zap.Int("zips", len(data.Zips)),
			zap.Int("split_zips", len(data.SplitZips)),
		)
		return nil
	},
}

func init() {
	catalogBuildCmd.Flags().StringVar(&buildDefinitions, "definitions", "", "territory definitions YAML")
	catalogBuildCmd.Flags().StringVar(&buildRoster, "roster", "", "city roster file (CSV or XLSX)")
	catalogBuildCmd.Flags().StringVar(&buildZCTA, "zcta", "", "ZCTA boundary shapefile (.shp)")
	catalogBuildCmd.Flags().StringVar(&buildAreas, "areas", "", "territory footprint shapefile (.shp)")
	catalogBuildCmd.Flags().StringVar(&buildAreaField, "area-field", "TERRITORY", "footprint attribute holding the territory id")
	catalogBuildCmd.Flags().StringVar(&buildZipField, "zip-field", "ZCTA5CE20", "ZCTA attribute holding the ZIP code")
	catalogBuildCmd.Flags().BoolVar(&buildSeed, "seed", false, "save the built-in seed catalog instead of building from sources")
	catalogCmd.AddCommand(catalogBuildCmd)
}
