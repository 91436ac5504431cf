package main

import (
	"fmt"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/infrastructure/dataset"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func seedCmd(g *globals) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the products of a dataset that are not in the database yet",
		Long: `Seed reads a product dataset (JSON keyed by product ID) and inserts
every product that is not stored yet. Stored products, and the inspections
recorded against them, are never overwritten.

Without --file the configured dataset path is used, or the bundled dataset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync(log) }()

			if path == "" {
				path = cfg.Dataset.Path
			}
			var products []*asset.Product
			if path != "" {
				products, err = dataset.LoadFile(path)
			} else {
				products, err = dataset.Parse(dataset.Bundled())
			}
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			result, err := dataset.Seed(cmd.Context(), persistence.NewGormProductRepository(db.DB), products, log)
			if err != nil {
				return err
			}
			log.Debug("Seed finished", zap.Int("products", len(products)))
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, skipped %d\n", result.Inserted, result.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "Dataset file (JSON)")
	return cmd
}
