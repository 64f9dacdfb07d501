// Command labelctl validates templates and generates labels from local files
// without a running server.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xelth-com/clamflow-labels/internal/buildinfo"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/logger"
	"github.com/xelth-com/clamflow-labels/internal/services/printer"
	"gopkg.in/yaml.v3"
)

var (
	verbose bool
	log     = logger.Nop()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "labelctl",
		Short:         "Label template and generation tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				return nil
			}
			l, err := logger.New("development", "debug")
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newValidateCmd(),
		newGenerateCmd(),
		newBatchCmd(),
		newExportCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd, buildinfo.Current())
		},
	}
}

func newGenerator() *labels.Generator {
	return labels.NewGenerator(printer.NewQRRenderer(), log)
}

// readDocument loads a JSON or YAML file into v, picking the decoder from
// the file extension
func readDocument(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isYAML(path) {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func documentFormat(path string) labels.DocumentFormat {
	if isYAML(path) {
		return labels.DocumentYAML
	}
	return labels.DocumentJSON
}

// readData loads an optional key/value document; an empty path yields nil
func readData(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := readDocument(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOutput writes to path, or to stdout when path is empty
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
