package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Linaro/lite-cornea/internal/iris"
)

var eventSourcesCmd = &cobra.Command{
	Use:   "event-sources <instance>",
	Short: "List the event classes an instance can emit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		sources, err := client.EventSources(inst.ID)
		if err != nil {
			return err
		}
		tbl := newTable("name", "description")
		for _, src := range sources {
			tbl.Row(src.Name, src.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tbl)
		return nil
	},
}

var eventFieldsCmd = &cobra.Command{
	Use:   "event-fields <instance> <source>",
	Short: "Describe the fields of an event source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		src, err := client.EventSourceByName(inst.ID, args[1])
		if err != nil {
			return err
		}
		tbl := newTable("type", "size", "name", "description")
		for _, field := range src.Fields {
			tbl.Row(field.Type, strconv.FormatUint(field.Size, 10), field.Name, field.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tbl)
		return nil
	},
}

var eventLogCmd = &cobra.Command{
	Use:   "event-log <instance> [source]",
	Short: "Log events as they occur until the connection closes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, inst, err := resolveInstance(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		var sources []iris.EventSource
		if len(args) == 2 {
			src, err := client.EventSourceByName(inst.ID, args[1])
			if err != nil {
				return err
			}
			sources = []iris.EventSource{src}
		} else {
			sources, err = client.EventSources(inst.ID)
			if err != nil {
				return err
			}
		}
		for _, src := range sources {
			_, err := client.CreateEventStream(iris.EventStreamSpec{
				InstID:   &inst.ID,
				ECInstID: client.InstanceID(),
				EvSrcID:  src.ID,
			})
			if err != nil {
				return err
			}
			client.OnEvent("ec_"+src.Name, func(params json.RawMessage) error {
				fmt.Fprintln(cmd.OutOrStdout(), string(params))
				return nil
			})
		}
		return client.WaitForEvents()
	},
}
