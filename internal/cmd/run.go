package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var breakCmd = &cobra.Command{
	Use:   "break <instance> <hex-addr> [hex-size]",
	Short: "Run until a code breakpoint at an address range hits",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := strconv.ParseUint(args[1], 16, 64)
		if err != nil {
			return fmt.Errorf("address %q: %w", args[1], err)
		}
		var size *uint64
		if len(args) == 3 {
			s, err := strconv.ParseUint(args[2], 16, 64)
			if err != nil {
				return fmt.Errorf("size %q: %w", args[2], err)
			}
			size = &s
		}

		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		sim, err := client.InstanceByName("framework.SimulationEngine")
		if err != nil {
			return err
		}
		bpt, err := client.CodeBreakpoint(inst.ID, addr, size, 0)
		if err != nil {
			return err
		}
		if err := client.StartSimulation(sim.ID); err != nil {
			return err
		}
		for {
			now, err := client.SimulationTime(sim.ID)
			if err != nil {
				return err
			}
			if !now.Running {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		return client.DeleteBreakpoint(inst.ID, bpt)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the platform",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect()
		if err != nil {
			return err
		}
		defer client.Close()

		sim, err := client.InstanceByName("framework.SimulationEngine")
		if err != nil {
			return err
		}
		if err := client.ResetSimulation(sim.ID, false); err != nil {
			return err
		}
		return client.WaitForInstantiation(sim.ID)
	},
}
