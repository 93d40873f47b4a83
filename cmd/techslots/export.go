package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"techslots/internal/config"
	"techslots/internal/export"
)

func newExportCmd(configPath *string) *cobra.Command {
	var out, month string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export bookings to an Excel workbook, one sheet per technician",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts export.Options
			if month != "" {
				m, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid --month %q, expected YYYY-MM", month)
				}
				opts.Month = m
			}
			if out == "" {
				if opts.Month.IsZero() {
					out = export.GenerateFilename(time.Now())
				} else {
					out = export.GenerateFilename(opts.Month)
				}
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg).Level(errorLevel)

			ctx := context.Background()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			w := export.NewExcelizeWriter()
			defer w.Close()

			n, err := export.Bookings(ctx, a.svc, w, opts)
			if err != nil {
				return err
			}
			if err := w.SaveToFile(out); err != nil {
				return fmt.Errorf("save %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d bookings to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (default bookings_YYYY-MM.xlsx)")
	cmd.Flags().StringVar(&month, "month", "", "only bookings in this month (YYYY-MM)")
	return cmd
}
