package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tansive/stately/pkg/client"
	"sigs.k8s.io/yaml"
)

var (
	// Write command flags
	writeFile   string
	writeSerial int64
	writeLockID string
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <scope> -f <file>",
	Short: "Write a scope's manifest",
	Long: `Write a new manifest for a scope. The file may be JSON or YAML; YAML is
converted to JSON before upload. The write must name the serial it is based
on; with --base-serial unset the current serial is fetched first, so a
concurrent write in between is still detected and rejected by the server.

Example:
  stately write networking-prod -f state.json
  stately write networking-prod -f state.yaml --base-serial 7 --lock-id <uuid>`,
	Args: cobra.ExactArgs(1),
	RunE: writeManifest,
}

func writeManifest(cmd *cobra.Command, args []string) error {
	c := newClient()
	scopeID := args[0]

	content, err := os.ReadFile(writeFile)
	if err != nil {
		return fmt.Errorf("unable to read manifest file: %w", err)
	}
	if !json.Valid(content) {
		content, err = yaml.YAMLToJSON(content)
		if err != nil {
			return fmt.Errorf("manifest file is neither JSON nor YAML: %w", err)
		}
	}

	baseSerial := writeSerial
	if baseSerial < 0 {
		m, err := c.ReadManifest(scopeID)
		switch {
		case err == nil:
			baseSerial = m.Serial
		case client.IsNotFound(err):
			baseSerial = 0
		default:
			return err
		}
	}

	meta, err := c.WriteManifest(scopeID, baseSerial, content, writeLockID)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(meta)
	} else {
		fmt.Printf("wrote %s: serial %d checksum %s\n", meta.ScopeID, meta.Serial, meta.Checksum)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(writeCmd)

	writeCmd.Flags().StringVarP(&writeFile, "file", "f", "", "Manifest file to upload (JSON or YAML)")
	writeCmd.Flags().Int64Var(&writeSerial, "base-serial", -1, "Serial this write is based on (default: fetch current)")
	writeCmd.Flags().StringVarP(&writeLockID, "lock-id", "l", "", "Lock token, required while the scope is locked")
	writeCmd.MarkFlagRequired("file")
}
