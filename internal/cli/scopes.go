package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteLockID string

// scopesCmd represents the scopes command
var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List all scopes on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		rsp, err := c.ListScopes()
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(rsp)
			return nil
		}
		if len(rsp.Scopes) == 0 {
			fmt.Println("no scopes")
			return nil
		}
		for _, s := range rsp.Scopes {
			locked := ""
			if s.Locked {
				locked = " [locked]"
			}
			fmt.Printf("%s\tserial=%d\tupdated=%s%s\n",
				s.ScopeID, s.Serial, s.UpdatedAt.Format("2006-01-02 15:04:05"), locked)
		}
		return nil
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <scope>",
	Short: "Delete a scope's manifest",
	Long: `Delete a scope's manifest. The same lock rules as writes apply: while
the scope is locked the delete must carry the lock token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if err := c.DeleteScope(args[0], deleteLockID); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scopesCmd)
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().StringVarP(&deleteLockID, "lock-id", "l", "", "Lock token, required while the scope is locked")
}
