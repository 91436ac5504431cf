package main

import (
	"fmt"
	"os"

	"github.com/railinspect/backend/internal/infrastructure/scanner"
	"github.com/spf13/cobra"
)

func labelCmd() *cobra.Command {
	var (
		size   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "label <product-id>",
		Short: "Render the QR label of a product as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			png, err := scanner.GenerateLabel(args[0], size)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(png)
				return err
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return fmt.Errorf("write label: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(png))
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "size", "s", 256, "Image size in pixels")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - or empty for stdout")
	return cmd
}
