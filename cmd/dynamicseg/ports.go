package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/DynamicSeg/internal/trigger"
)

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports for the trigger box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := trigger.Ports()
			if err != nil {
				return fmt.Errorf("failed to list serial ports: %w", err)
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
