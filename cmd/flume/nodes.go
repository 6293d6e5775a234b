package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flumehq/flume/builtin"
	"github.com/flumehq/flume/yaml"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the built-in node types",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := builtin.RegisterAll(yaml.NewLoader())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tCATEGORY\tDESCRIPTION")
		for _, nodeType := range registry.Types() {
			builder, _ := registry.Get(nodeType)
			meta := builder.Metadata()
			fmt.Fprintf(w, "%s\t%s\t%s\n", meta.Type, meta.Category, meta.Description)
		}
		return w.Flush()
	},
}

var nodesInfoCmd = &cobra.Command{
	Use:   "info <type>",
	Short: "Show a node type's metadata and config schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := builtin.RegisterAll(yaml.NewLoader())

		builder, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown node type %q", args[0])
		}

		data, err := json.MarshalIndent(builder.Metadata(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	nodesCmd.AddCommand(nodesInfoCmd)
	rootCmd.AddCommand(nodesCmd)
}
