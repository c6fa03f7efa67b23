// Package cli implements the stately command line client.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tansive/stately/pkg/client"
)

var (
	// Global flags
	serverURL  string
	authToken  string
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stately",
	Short: "Stately CLI - a command line client for the Stately state server",
	Long: `Stately CLI is a command line client for the Stately state server.
It reads and writes versioned state manifests, and manages the advisory
locks that serialize writers on a scope.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8184", "Base URL of the state server")
	rootCmd.PersistentFlags().StringVarP(&authToken, "token", "t", "", "Bearer token for authentication")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			printJSON(map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newClient() *client.Client {
	var opts []client.Option
	if authToken == "" {
		authToken = os.Getenv("STATELY_TOKEN")
	}
	if authToken != "" {
		opts = append(opts, client.WithToken(authToken))
	}
	opts = append(opts, client.WithTimeout(30*time.Second))
	return client.New(serverURL, opts...)
}

func printJSON(v any) {
	jsonBytes, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to format output: %v\n", err)
		return
	}
	fmt.Println(string(jsonBytes))
}
