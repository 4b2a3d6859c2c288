package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/makernet/portage/internal/api/v1/handlers"
)

// GetJobsCmd returns the jobs command group
func GetJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage transfer jobs",
	}

	jobsCmd.AddCommand(createJobCmd())
	jobsCmd.AddCommand(getJobCmd())
	jobsCmd.AddCommand(listJobsCmd())
	jobsCmd.AddCommand(unfinishedJobsCmd())
	jobsCmd.AddCommand(retryJobCmd())
	jobsCmd.AddCommand(cancelJobCmd())

	return jobsCmd
}

func createJobCmd() *cobra.Command {
	var req handlers.CreateJobRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a transfer job",
		RunE: func(_ *cobra.Command, _ []string) error {
			job, err := apiClient.CreateJob(context.Background(), req)
			if err != nil {
				return fmt.Errorf("error creating job: %w", err)
			}
			return printJSON(job)
		},
	}

	cmd.Flags().StringVar(&req.ImportService, "import-service", "", "Service to import from (git, google_drive, dropbox)")
	cmd.Flags().StringVar(&req.ImportURL, "import-url", "", "URL of the source tree")
	cmd.Flags().StringVar(&req.ImportToken, "import-token", "", "Access token for the source service")
	cmd.Flags().StringVar(&req.ExportService, "export-service", "", "Service to export to (git, dropbox, wikifactory)")
	cmd.Flags().StringVar(&req.ExportURL, "export-url", "", "URL of the destination")
	cmd.Flags().StringVar(&req.ExportToken, "export-token", "", "Access token for the destination service")
	_ = cmd.MarkFlagRequired("import-service")
	_ = cmd.MarkFlagRequired("import-url")
	_ = cmd.MarkFlagRequired("export-service")
	_ = cmd.MarkFlagRequired("export-url")

	return cmd
}

func getJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a job with its progress and status log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := jobIDFlag(cmd)
			if err != nil {
				return err
			}
			job, err := apiClient.GetJob(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error fetching job: %w", err)
			}
			return printJSON(job)
		},
	}

	cmd.Flags().StringP("id", "i", "", "Job ID to fetch")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func listJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			jobs, err := apiClient.ListJobs(context.Background(), limit, offset)
			if err != nil {
				return fmt.Errorf("error fetching jobs: %w", err)
			}
			return printJSON(jobs)
		},
	}

	cmd.Flags().IntP("limit", "l", 0, "Limit the number of jobs returned")
	cmd.Flags().IntP("offset", "o", 0, "Offset into the job list")

	return cmd
}

func unfinishedJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfinished",
		Short: "List the ids of every unfinished job",
		RunE: func(_ *cobra.Command, _ []string) error {
			out, err := apiClient.ListUnfinishedJobs(context.Background())
			if err != nil {
				return fmt.Errorf("error fetching unfinished jobs: %w", err)
			}
			return printJSON(out)
		},
	}
}

func retryJobCmd() *cobra.Command {
	var req handlers.RetryJobRequest

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Retry a failed job, optionally with new parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := jobIDFlag(cmd)
			if err != nil {
				return err
			}
			job, err := apiClient.RetryJob(context.Background(), id, req)
			if err != nil {
				return fmt.Errorf("error retrying job: %w", err)
			}
			return printJSON(job)
		},
	}

	cmd.Flags().StringP("id", "i", "", "Job ID to retry")
	cmd.Flags().StringVar(&req.ImportURL, "import-url", "", "Replacement source URL")
	cmd.Flags().StringVar(&req.ImportToken, "import-token", "", "Replacement source token")
	cmd.Flags().StringVar(&req.ExportURL, "export-url", "", "Replacement destination URL")
	cmd.Flags().StringVar(&req.ExportToken, "export-token", "", "Replacement destination token")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func cancelJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel an active job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := jobIDFlag(cmd)
			if err != nil {
				return err
			}
			job, err := apiClient.CancelJob(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error cancelling job: %w", err)
			}
			return printJSON(job)
		},
	}

	cmd.Flags().StringP("id", "i", "", "Job ID to cancel")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func jobIDFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id %q: %w", raw, err)
	}
	return id, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
