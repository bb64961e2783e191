package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cochaviz/sdc-clients/internal/vmapi"
)

func newMachinesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "machines",
		Aliases: []string{"machine"},
		Short:   "List and inspect normalised machines",
	}
	cmd.AddCommand(
		newMachinesListCommand(a),
		newMachinesGetCommand(a),
	)
	return cmd
}

func newMachinesListCommand(a *app) *cobra.Command {
	var (
		filters      filterFlags
		output       string
		printMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Args:  cobra.NoArgs,
		Short: "List machines matching the given filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			filter, err := filters.build(cmd.Flags())
			if err != nil {
				return fmt.Errorf("%w: %w", errUsage, err)
			}

			cmdLogger := a.logger.With("command", "machines.list")

			inv, err := a.inventory()
			if err != nil {
				return err
			}
			defer inv.Close()

			if printMetrics {
				defer func() {
					if err := writeMetrics(cmd.ErrOrStderr(), inv.Registry); err != nil {
						cmdLogger.Warn("print metrics failed", "error", err)
					}
				}()
			}

			result, err := inv.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			machines := result.Machines
			if machines == nil {
				machines = []vmapi.Machine{}
			}
			if err := render(cmd.OutOrStdout(), format, machines); err != nil {
				return err
			}

			if len(result.Failed) == 0 {
				return nil
			}
			for _, id := range result.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\t%v\n", id, result.Errors[id])
			}
			return fmt.Errorf("%w: %d of %d", errPartialBatch, len(result.Failed), len(result.Failed)+len(result.Machines))
		},
	}

	filters.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", string(outputJSON), "Output format (json, yaml)")
	cmd.Flags().BoolVar(&printMetrics, "print-metrics", false, "Write client metrics to stderr after listing")
	return cmd
}

func newMachinesGetCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <uuid>",
		Args:  cobra.ExactArgs(1),
		Short: "Show a single machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("%w: invalid machine uuid %q", errUsage, args[0])
			}

			inv, err := a.inventory()
			if err != nil {
				return err
			}
			defer inv.Close()

			machine, err := inv.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, machine)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(outputJSON), "Output format (json, yaml)")
	return cmd
}

func newVMsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vms",
		Short: "Work with raw VMAPI records",
	}
	cmd.AddCommand(newVMsListCommand(a))
	return cmd
}

func newVMsListCommand(a *app) *cobra.Command {
	var (
		filters filterFlags
		output  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Args:  cobra.NoArgs,
		Short: "List raw VMAPI records matching the given filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			filter, err := filters.build(cmd.Flags())
			if err != nil {
				return fmt.Errorf("%w: %w", errUsage, err)
			}

			inv, err := a.inventory()
			if err != nil {
				return err
			}
			defer inv.Close()

			vms, err := inv.Raw(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if vms == nil {
				vms = []vmapi.VM{}
			}
			return render(cmd.OutOrStdout(), format, vms)
		},
	}

	filters.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", string(outputJSON), "Output format (json, yaml)")
	return cmd
}
