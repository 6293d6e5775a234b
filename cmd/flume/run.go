package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	goyaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/flumehq/flume"
	"github.com/flumehq/flume/builtin"
	"github.com/flumehq/flume/yaml"
)

var (
	dryRun    bool
	inputFile string
)

var runCmd = &cobra.Command{
	Use:   "run <file.yaml>",
	Short: "Execute a workflow from a YAML file",
	Example: `  # Run a workflow
  flume run workflow.yaml

  # Validate without executing
  flume run workflow.yaml --dry-run

  # Seed the initial state from a JSON file ("-" for stdin)
  flume run workflow.yaml --input state.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0])
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the workflow without executing")
	runCmd.Flags().StringVar(&inputFile, "input", "", "JSON file with the initial state (\"-\" for stdin)")
	rootCmd.AddCommand(runCmd)
}

func runWorkflow(cmd *cobra.Command, path string) error {
	logger := newLogger()

	parser := yaml.NewParser()
	def, err := parser.ParseFile(path)
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "workflow %q is valid (%d nodes, %d connections)\n",
			def.Name, len(def.Nodes), len(def.Connections))
		return nil
	}

	loader := yaml.NewLoader().WithLogger(logger)
	builtin.RegisterAll(loader)

	graph, err := loader.Load(def)
	if err != nil {
		return fmt.Errorf("load workflow: %w", err)
	}

	state, err := readInput()
	if err != nil {
		return err
	}

	executor := flume.NewExecutor(flume.WithLogger(logger))

	start := time.Now()
	result, err := executor.ExecuteWithLogging(cmd.Context(), graph, state)
	if err != nil {
		return fmt.Errorf("workflow failed: %w", err)
	}
	logger.Info(cmd.Context(), "workflow completed", "workflow", def.Name, "elapsed", time.Since(start))

	out, err := goyaml.Marshal(map[string]any(result))
	if err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// readInput loads the initial state from --input, defaulting to an empty
// state.
func readInput() (flume.Context, error) {
	if inputFile == "" {
		return flume.NewContext(), nil
	}

	var data []byte
	var err error
	if inputFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inputFile) // #nosec G304 - user-provided state file
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	state := flume.NewContext()
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return state, nil
}
