package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <listing-id> <stage>",
		Short: "Run a pipeline stage for a listing",
		Long: "Run a pipeline stage for a listing. Stages: image_download, " +
			"image_process, script_generate, voiceover_generate, qr_generate, video_compose.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			job, err := client.dispatch(id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %s for listing %d (job %s)\n",
				job.Stage, job.ListingID, job.ID)
			return nil
		},
	}
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <listing-id> <stage>",
		Short: "Regenerate a stage artifact, invalidating downstream artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			job, err := client.regenerate(id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Regenerating %s for listing %d (job %s)\n",
				job.Stage, job.ListingID, job.ID)
			return nil
		},
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var listingID int64

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List pipeline jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			jobs, err := client.listJobs(listingID)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				detail := j.ErrorMessage
				if j.ErrorKind != "" {
					detail = fmt.Sprintf("[%s] %s", j.ErrorKind, j.ErrorMessage)
				}
				rows = append(rows, []string{
					j.ID,
					strconv.FormatInt(j.ListingID, 10),
					j.Stage,
					j.Status,
					fmt.Sprintf("%.0f%%", j.Progress),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Listing", "Stage", "Status", "Progress", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().Int64Var(&listingID, "listing", 0, "Only jobs for one listing")
	return cmd
}
