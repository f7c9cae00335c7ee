// Package cmd implements the cornea command line: inspection subcommands
// over the Iris RPC surface and the GDB proxy.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Linaro/lite-cornea/internal/config"
	"github.com/Linaro/lite-cornea/internal/iris"
)

var (
	flagConfig   string
	flagPort     uint16
	flagLogLevel string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "cornea",
	Short:         "poke at ARM Fast Models through their Iris debug port",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = flagPort
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		// Logs go to stderr: stdout may carry the GDB serial protocol.
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})))
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.cornea/config.yaml)")
	rootCmd.PersistentFlags().Uint16VarP(&flagPort, "port", "p", 0, "Iris server port (default: scan 7100..7104)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(registerListCmd)
	rootCmd.AddCommand(registerReadCmd)
	rootCmd.AddCommand(memorySpacesCmd)
	rootCmd.AddCommand(memoryReadCmd)
	rootCmd.AddCommand(childListCmd)
	rootCmd.AddCommand(eventSourcesCmd)
	rootCmd.AddCommand(eventFieldsCmd)
	rootCmd.AddCommand(eventLogCmd)
	rootCmd.AddCommand(breakCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(gdbProxyCmd)
	rootCmd.AddCommand(versionCmd)
}

// connect dials the Iris server and registers this process as a client
// instance.
func connect() (*iris.Client, error) {
	var (
		client *iris.Client
		err    error
	)
	if cfg.Port != 0 {
		client, err = iris.Dial(cfg.Port, slog.Default())
	} else {
		client, err = iris.DialAny(slog.Default())
	}
	if err != nil {
		return nil, err
	}
	if _, err := client.Register("cornea"); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// resolveInstance connects and finds the named instance, returning both.
func resolveInstance(name string) (*iris.Client, iris.Instance, error) {
	client, err := connect()
	if err != nil {
		return nil, iris.Instance{}, err
	}
	inst, err := findInstance(client, name)
	if err != nil {
		client.Close()
		return nil, iris.Instance{}, fmt.Errorf("instance %q: %w", name, err)
	}
	return client, inst, nil
}
