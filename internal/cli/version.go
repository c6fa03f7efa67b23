package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the server version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		rsp, err := c.Version()
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(rsp)
			return nil
		}
		fmt.Printf("%s (api %s)\n", rsp.ServerVersion, rsp.ApiVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
