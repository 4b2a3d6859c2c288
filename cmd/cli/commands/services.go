package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// GetServicesCmd returns the services command group
func GetServicesCmd() *cobra.Command {
	servicesCmd := &cobra.Command{
		Use:   "services",
		Short: "Inspect supported hosting services",
	}

	servicesCmd.AddCommand(discoverServicesCmd())

	return servicesCmd
}

func discoverServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover [url...]",
		Short: "Map urls to the service able to handle them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			out, err := apiClient.DiscoverServices(context.Background(), args)
			if err != nil {
				return fmt.Errorf("error discovering services: %w", err)
			}

			result := make(map[string]string, len(args))
			for i, url := range args {
				result[url] = out.Services[i]
			}
			return printJSON(result)
		},
	}
}
