// Package commands implements the portage CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/makernet/portage/internal/api/v1/client"
)

// flag names
const (
	flagServerAddress = "server-address"
)

// environment variable names
const (
	envServerAddress = "PORTAGE_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
)

// initClient initializes the API client
func initClient() error {
	var err error
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", client.DefaultBaseURL,
		"Address of the portage API server (env: PORTAGE_SERVER_ADDRESS)")

	RootCmd.AddCommand(GetJobsCmd())
	RootCmd.AddCommand(GetServicesCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "portage",
	Short: "Portage CLI - A command line interface for the portage API",
	Long: `Portage CLI is a command line tool for moving file trees between hosting
services through the portage API.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		// Precedence: flag > env var > default
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(envServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}

		if serverAddress == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return initClient()
	},
}
