package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var memorySpacesCmd = &cobra.Command{
	Use:   "memory-spaces <instance>",
	Short: "Tabulate the memory address spaces of an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		spaces, err := client.MemorySpaces(inst.ID)
		if err != nil {
			return err
		}
		tbl := newTable("id", "name", "description")
		for _, space := range spaces {
			tbl.Row(strconv.FormatUint(space.ID, 10), space.Name, space.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tbl)
		return nil
	},
}

var flagGroupBy string

var memoryReadCmd = &cobra.Command{
	Use:   "memory-read <instance> <hex-addr> [hex-size]",
	Short: "Read memory from the perspective of an instance",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := strconv.ParseUint(args[1], 16, 64)
		if err != nil {
			return fmt.Errorf("address %q: %w", args[1], err)
		}
		size := uint64(4)
		if len(args) == 3 {
			size, err = strconv.ParseUint(args[2], 16, 64)
			if err != nil {
				return fmt.Errorf("size %q: %w", args[2], err)
			}
		}
		group, err := parseGroupBy(flagGroupBy)
		if err != nil {
			return err
		}

		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		words, err := client.ReadMemory(inst.ID, 0, addr, 1, size)
		if err != nil {
			return err
		}
		hexDump(cmd.OutOrStdout(), addr, wordsToBytes(words, int(size)), group)
		return nil
	},
}

func init() {
	memoryReadCmd.Flags().StringVarP(&flagGroupBy, "group-by", "g", "u8", "element width: u8, u16, u32, u64")
}
