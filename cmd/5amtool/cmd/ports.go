package cmd

import (
	"fmt"

	"github.com/roffe/gokline/adapter/kkl"
	"github.com/spf13/cobra"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "list serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := kkl.Ports()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range ports {
				fmt.Fprintln(out, p.Name)
				if p.IsUSB {
					fmt.Fprintf(out, "   USB ID     %s:%s\n", p.VID, p.PID)
					fmt.Fprintf(out, "   USB serial %s\n", p.SerialNumber)
				}
			}
			return nil
		},
	}
}
