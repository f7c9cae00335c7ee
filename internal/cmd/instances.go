package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var childListCmd = &cobra.Command{
	Use:   "child-list [instance]",
	Short: "Print the children of an instance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect()
		if err != nil {
			return err
		}
		defer client.Close()

		name := ""
		if len(args) == 1 {
			inst, err := findInstance(client, args[0])
			if err != nil {
				return fmt.Errorf("instance %q: %w", args[0], err)
			}
			name = inst.Name
		}
		instances, err := client.Instances(name)
		if err != nil {
			return err
		}
		for _, inst := range instances {
			if inst.Name != name {
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimPrefix(inst.Name, name))
			}
		}
		return nil
	},
}
