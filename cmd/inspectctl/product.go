package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

func productCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "product <product-id>",
		Short: "Print a stored product as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync(log) }()

			db, err := openDatabase(cmd, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			lookup := inspectionapp.NewLookupService(persistence.NewGormProductRepository(db.DB))
			product, err := lookup.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(product)
		},
	}
}

func listCmd(g *globals) *cobra.Command {
	var q inspectionapp.ProductListQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored products as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync(log) }()

			db, err := openDatabase(cmd, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			lookup := inspectionapp.NewLookupService(persistence.NewGormProductRepository(db.DB))
			products, err := lookup.List(cmd.Context(), q)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCONDITION\tSTATUS\tNEXT MAINTENANCE")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ProductID, p.Name, p.Condition, p.Status, p.NextMaintenance)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&q.Category, "category", "", "Only products in this category")
	cmd.Flags().StringVar(&q.Condition, "condition", "", "Only products in this condition")
	cmd.Flags().StringVar(&q.Status, "status", "", "Only products with this status")
	cmd.Flags().StringVar(&q.Sort, "sort", "", "Sort key, e.g. next_maintenance")
	cmd.Flags().StringVar(&q.Order, "order", "", "asc or desc")
	return cmd
}

func historyCmd(g *globals) *cobra.Command {
	var q inspectionapp.HistoryQuery

	cmd := &cobra.Command{
		Use:   "history <product-id>",
		Short: "Export the maintenance history of a product as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync(log) }()

			db, err := openDatabase(cmd, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			lookup := inspectionapp.NewLookupService(persistence.NewGormProductRepository(db.DB))
			return inspectionapp.NewHistoryService(lookup).ExportCSV(cmd.Context(), args[0], q, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "Only entries whose notes or inspector contain this text")
	cmd.Flags().StringVar(&q.Type, "type", "", "Only entries of this maintenance type")
	return cmd
}
