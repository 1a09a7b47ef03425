package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Inspect and review listing scripts",
	}
	cmd.AddCommand(newScriptShowCommand(ctx))
	cmd.AddCommand(newScriptEditCommand(ctx))
	cmd.AddCommand(newScriptApproveCommand(ctx))
	cmd.AddCommand(newScriptRejectCommand(ctx))
	cmd.AddCommand(newScriptRevertCommand(ctx))
	return cmd
}

func newScriptShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <listing-id>",
		Short: "Print the current script and its review state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			script, err := client.getScript(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s — %d words, ~%ds voiceover, %d prior version(s)\n",
				script.Status, script.WordCount, script.EstimatedDuration, script.Versions)
			if script.RejectReason != "" {
				fmt.Fprintf(out, "Rejected: %s\n", script.RejectReason)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, script.Content)
			return nil
		},
	}
}

func newScriptEditCommand(ctx *commandContext) *cobra.Command {
	var file string
	var editedBy string

	cmd := &cobra.Command{
		Use:   "edit <listing-id>",
		Short: "Replace the script content from a file, keeping the old version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read script file: %w", err)
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			script, err := client.updateScript(id, strings.TrimSpace(string(content)), editedBy)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script updated: %d words, awaiting approval (%d prior versions)\n",
				script.WordCount, script.Versions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File containing the new script content (required)")
	cmd.Flags().StringVar(&editedBy, "by", "", "Editor name recorded on the change")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newScriptApproveCommand(ctx *commandContext) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "approve <listing-id>",
		Short: "Approve the pending script so voiceover can run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			script, err := client.scriptAction(id, "approve", map[string]any{"reviewer": reviewer})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script approved (%d words, ~%ds voiceover)\n",
				script.WordCount, script.EstimatedDuration)
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewer, "by", "", "Reviewer name recorded on the approval")
	return cmd
}

func newScriptRejectCommand(ctx *commandContext) *cobra.Command {
	var reviewer string
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <listing-id>",
		Short: "Reject the pending script with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			if _, err := client.scriptAction(id, "reject",
				map[string]any{"reviewer": reviewer, "reason": reason}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Script rejected; edit it or regenerate script_generate.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewer, "by", "", "Reviewer name recorded on the rejection")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the script was rejected (required)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newScriptRevertCommand(ctx *commandContext) *cobra.Command {
	var editedBy string

	cmd := &cobra.Command{
		Use:   "revert <listing-id> <version>",
		Short: "Restore an earlier script version (0 is the oldest)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			version, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("version must be an integer, got %q", args[1])
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			script, err := client.scriptAction(id, "revert",
				map[string]any{"version": version, "edited_by": editedBy})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script reverted to version %d, awaiting approval (%d versions on record)\n",
				version, script.Versions)
			return nil
		},
	}

	cmd.Flags().StringVar(&editedBy, "by", "", "Editor name recorded on the revert")
	return cmd
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Review and publish listing videos",
	}
	cmd.AddCommand(newVideoApproveCommand(ctx))
	cmd.AddCommand(newVideoRejectCommand(ctx))
	cmd.AddCommand(newVideoPublishCommand(ctx))
	return cmd
}

func newVideoApproveCommand(ctx *commandContext) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "approve <listing-id>",
		Short: "Approve the ready video for publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			video, err := client.videoAction(id, "approve", map[string]any{"reviewer": reviewer})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Video %d approved (%.0fs, %s)\n",
				video.ID, video.Duration, video.Resolution)
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewer, "by", "", "Reviewer name recorded on the approval")
	return cmd
}

func newVideoRejectCommand(ctx *commandContext) *cobra.Command {
	var reviewer string
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <listing-id>",
		Short: "Reject the ready video with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			if _, err := client.videoAction(id, "reject",
				map[string]any{"reviewer": reviewer, "reason": reason}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Video rejected; regenerate video_compose after fixing the inputs.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewer, "by", "", "Reviewer name recorded on the rejection")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the video was rejected (required)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newVideoPublishCommand(ctx *commandContext) *cobra.Command {
	var publishedBy string

	cmd := &cobra.Command{
		Use:   "publish <listing-id>",
		Short: "Upload the approved video and mark the listing published",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			video, err := client.videoAction(id, "publish", map[string]any{"reviewer": publishedBy})
			if err != nil {
				return err
			}
			if video.PublicURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Published: %s\n", video.PublicURL)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Published.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&publishedBy, "by", "", "Operator name recorded on the publish")
	return cmd
}
