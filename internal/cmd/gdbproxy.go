package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Linaro/lite-cornea/internal/gdb"
	"github.com/Linaro/lite-cornea/internal/rsp"
)

var flagListen string

var gdbProxyCmd = &cobra.Command{
	Use:   "gdb-proxy <instance>",
	Short: "Provide a GDB server for a CPU instance",
	Long: `Provide a GDB server for a CPU instance.

By default the GDB serial protocol is spoken over stdin/stdout, suitable for
gdb's "target remote | cornea gdb-proxy cpu0". With --listen the proxy serves
TCP connections instead, one at a time.`,
	Args: cobra.ExactArgs(1),
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
		arch := gdb.DetectArch(resources)
		logger := slog.Default().With(
			"session", uuid.NewString(),
			"instance", inst.Name,
			"arch", arch.String(),
		)
		target, err := gdb.NewTarget(client, inst, arch, logger)
		if err != nil {
			return err
		}

		if flagListen == "" {
			logger.Info("serving gdb on stdio")
			err := rsp.Serve(rsp.NewConn(os.Stdin, os.Stdout), target, logger)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Disconnected with %v\n", err)
			}
			return nil
		}

		ln, err := net.Listen("tcp", flagListen)
		if err != nil {
			return err
		}
		defer ln.Close()
		logger.Info("serving gdb", "addr", ln.Addr())
		for {
			// One GDB at a time; concurrent debuggers would trample each
			// other's run control.
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			if err := rsp.Serve(rsp.NewConn(conn, conn), target, logger); err != nil {
				logger.Warn("gdb session ended", "err", err)
			}
			conn.Close()
		}
	},
}

func init() {
	gdbProxyCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "serve RSP on a TCP address instead of stdio")
}
