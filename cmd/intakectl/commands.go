package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pantry-intake/internal/guidelines"
	"pantry-intake/internal/intake"
)

// serviceFactory builds the intake service and returns a cleanup function.
type serviceFactory func(ctx context.Context) (*intake.Service, func() error, error)

func newRootCmd(build serviceFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "intakectl",
		Short:         "Generate and inspect pet pantry intake forms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newGenerateCmd(build),
		newPreviewCmd(build),
		newPendingCmd(build),
		newPollCmd(build),
		newNextIDCmd(build),
		newGuidelinesCmd(build),
	)
	return root
}

// withService runs fn with a freshly built service and always releases it.
func withService(cmd *cobra.Command, build serviceFactory, fn func(context.Context, *intake.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	return fn(ctx, svc)
}

func parseRow(arg string) (int, error) {
	row, err := strconv.Atoi(arg)
	if err != nil || row <= 1 {
		return 0, fmt.Errorf("row must be a data row number greater than 1, got %q", arg)
	}
	return row, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newGenerateCmd(build serviceFactory) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "generate <row>",
		Short: "Assign a FormID if needed and render the PDF for a response row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, build, func(ctx context.Context, svc *intake.Service) error {
				res, err := svc.Generate(ctx, row, force)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even when a PDF already exists")
	return cmd
}

func newPreviewCmd(build serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <row>",
		Short: "Print the placeholder map for a row without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, build, func(ctx context.Context, svc *intake.Service) error {
				placeholders, err := svc.Preview(ctx, row)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), placeholders)
			})
		},
	}
}

func newPendingCmd(build serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List rows with responses but no generated PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, build, func(ctx context.Context, svc *intake.Service) error {
				rows, err := svc.Pending(ctx)
				if err != nil {
					return err
				}
				for _, row := range rows {
					fmt.Fprintln(cmd.OutOrStdout(), row)
				}
				return nil
			})
		},
	}
}

func newPollCmd(build serviceFactory) *cobra.Command {
	var (
		once     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Generate forms for pending rows, once or until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, build, func(ctx context.Context, svc *intake.Service) error {
				poller := &intake.Poller{Service: svc, Interval: interval}
				if !once {
					return poller.Run(ctx)
				}
				n, err := poller.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "generated %d form(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "process pending rows once and exit")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between scans")
	return cmd
}

func newNextIDCmd(build serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "next-id",
		Short: "Consume and print the next FormID",
		Long:  "Consume and print the next FormID. The id is not written to any row, so it is skipped for good.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, build, func(ctx context.Context, svc *intake.Service) error {
				id, err := svc.Sequence.Next(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newGuidelinesCmd(build serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "guidelines",
		Short: "Validate and print the distribution guideline table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, build, func(ctx context.Context, svc *intake.Service) error {
				if svc.Guidelines == nil {
					return fmt.Errorf("no guideline source configured")
				}
				table, err := guidelines.LoadFrom(ctx, svc.Guidelines)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(table))
				for k := range table {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				out := cmd.OutOrStdout()
				for _, k := range keys {
					r := table[k]
					fmt.Fprintf(out, "%s\t%s\tper=%s\tmax=%s\t%s\n", r.DisplayName, r.Placeholder, amount(r.PerIndividual), amount(r.HouseholdMax), r.Notes)
				}
				return nil
			})
		},
	}
}

func amount(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
