package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"techslots/internal/config"
	"techslots/internal/slots"
)

func newSlotsCmd(configPath *string) *cobra.Command {
	var technicianID, date string

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print a technician's hours for a date and whether each is free",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			view, err := a.svc.Slots(ctx, technicianID, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s on %s (%s mode)\n", view.TechnicianID, view.Date, view.Mode)
			if view.Warning != "" {
				fmt.Fprintf(out, "warning: %s\n", view.Warning)
			}
			if len(view.Slots) == 0 {
				fmt.Fprintln(out, "no slots")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "START\tEND\tSTATUS")
			for _, s := range view.Slots {
				status := "free"
				if !s.Available {
					status = "taken"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Start, s.End, status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&technicianID, "technician", "", "technician id")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("technician")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newKeyCmd() *cobra.Command {
	var technicianID, date, hour string

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Print the slot key for a technician, date and hour",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := slots.NewKey(technicianID, date, hour)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), k.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&technicianID, "technician", "", "technician id")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&hour, "hour", "", "start hour (HH:00)")
	_ = cmd.MarkFlagRequired("technician")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("hour")
	return cmd
}
