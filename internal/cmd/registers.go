package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var registerListCmd = &cobra.Command{
	Use:   "register-list <instance>",
	Short: "Describe the registers and parameters of an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		resources, err := client.Resources(inst.ID)
		if err != nil {
			return err
		}
		tbl := newTable("type", "bits", "name", "description")
		for _, res := range resources {
			kind := "Reg"
			if !res.IsRegister() {
				kind = "Param"
			}
			tbl.Row(kind, strconv.FormatUint(res.BitWidth, 10), res.Name, res.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tbl)
		return nil
	},
}

var registerReadCmd = &cobra.Command{
	Use:   "register-read <instance> <prefix>",
	Short: "Read matching registers from an instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		resources, err := client.Resources(inst.ID)
		if err != nil {
			return err
		}
		tbl := newTable("value", "name")
		for _, res := range resources {
			if !strings.HasPrefix(res.Name, args[1]) {
				continue
			}
			data, err := client.ReadResources(inst.ID, []uint64{res.ID})
			if err != nil {
				return err
			}
			if len(data) > 0 {
				tbl.Row(fmt.Sprintf("%x", data[0]), res.Name)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), tbl)
		return nil
	},
}
