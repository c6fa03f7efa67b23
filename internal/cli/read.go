package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Read command flags
	readPath   string
	readOutput string
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <scope>",
	Short: "Read a scope's manifest",
	Long: `Read the current manifest of a scope. By default the raw content is
written to stdout. With --path, only the value at the given JSON path is
returned instead of the whole manifest.

Example:
  stately read networking-prod
  stately read networking-prod --path outputs.vpc_id
  stately read networking-prod -o state.json`,
	Args: cobra.ExactArgs(1),
	RunE: readManifest,
}

func readManifest(cmd *cobra.Command, args []string) error {
	c := newClient()
	scopeID := args[0]

	if readPath != "" {
		rsp, err := c.QueryManifest(scopeID, readPath)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(rsp)
		} else {
			printJSON(rsp.Value)
		}
		return nil
	}

	m, err := c.ReadManifest(scopeID)
	if err != nil {
		return err
	}
	if readOutput != "" {
		if err := os.WriteFile(readOutput, m.Content, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s (serial %d) to %s\n", scopeID, m.Serial, readOutput)
		return nil
	}
	if jsonOutput {
		printJSON(m)
		return nil
	}
	os.Stdout.Write(m.Content)
	fmt.Println()
	fmt.Fprintf(os.Stderr, "serial: %d checksum: %s\n", m.Serial, m.Checksum)
	return nil
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().StringVarP(&readPath, "path", "p", "", "JSON path to extract from the manifest")
	readCmd.Flags().StringVarP(&readOutput, "output", "o", "", "Write manifest content to a file")
}
