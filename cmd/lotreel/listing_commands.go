package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		dealerID    string
		stockNumber string
		vin         string
		year        int
		makeName    string
		model       string
		price       float64
		condition   string
		color       string
		odometer    int64
		engine      string
		description string
		listingURL  string
		photoURLs   []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a vehicle listing with the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			listing, err := client.createListing(map[string]any{
				"dealer_id":    dealerID,
				"stock_number": stockNumber,
				"vin":          vin,
				"year":         year,
				"make":         makeName,
				"model":        model,
				"price":        price,
				"condition":    condition,
				"color":        color,
				"odometer":     odometer,
				"engine":       engine,
				"description":  description,
				"listing_url":  listingURL,
				"photo_urls":   photoURLs,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created listing %d (%s %s) in %s\n",
				listing.ID, listing.Make, listing.Model, listing.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&dealerID, "dealer", "", "Dealer identifier (required)")
	cmd.Flags().StringVar(&stockNumber, "stock", "", "Dealer stock number (required)")
	cmd.Flags().StringVar(&vin, "vin", "", "Vehicle identification number")
	cmd.Flags().IntVar(&year, "year", 0, "Model year")
	cmd.Flags().StringVar(&makeName, "make", "", "Vehicle make")
	cmd.Flags().StringVar(&model, "model", "", "Vehicle model")
	cmd.Flags().Float64Var(&price, "price", 0, "Asking price")
	cmd.Flags().StringVar(&condition, "condition", "", "Condition (new/used/certified)")
	cmd.Flags().StringVar(&color, "color", "", "Exterior color")
	cmd.Flags().Int64Var(&odometer, "odometer", 0, "Odometer miles")
	cmd.Flags().StringVar(&engine, "engine", "", "Engine description")
	cmd.Flags().StringVar(&description, "description", "", "Listing description")
	cmd.Flags().StringVar(&listingURL, "url", "", "Public listing page URL")
	cmd.Flags().StringSliceVar(&photoURLs, "photo", nil, "Photo URL (repeatable)")
	_ = cmd.MarkFlagRequired("dealer")
	_ = cmd.MarkFlagRequired("stock")

	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vehicle listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			listings, err := client.listListings(statusFilter)
			if err != nil {
				return err
			}
			if len(listings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No listings found.")
				return nil
			}

			rows := make([][]string, 0, len(listings))
			for _, l := range listings {
				vehicle := strings.TrimSpace(fmt.Sprintf("%d %s %s", l.Year, l.Make, l.Model))
				status := l.Status
				if l.ErrorStage != "" {
					status = fmt.Sprintf("%s (%s)", status, l.ErrorStage)
				}
				rows = append(rows, []string{
					strconv.FormatInt(l.ID, 10),
					l.DealerID,
					l.StockNumber,
					vehicle,
					fmt.Sprintf("$%.0f", l.Price),
					status,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Dealer", "Stock", "Vehicle", "Price", "Status"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (comma-separated)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <listing-id>",
		Short: "Show one listing in detail",
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
			l, err := client.getListing(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Listing %d — %s %s (stock %s, dealer %s)\n",
				l.ID, l.Make, l.Model, l.StockNumber, l.DealerID)
			fmt.Fprintf(out, "  Status: %s\n", l.Status)
			if l.ErrorStage != "" {
				fmt.Fprintf(out, "  Failed stage: %s\n", l.ErrorStage)
				fmt.Fprintf(out, "  Error: %s\n", l.ErrorMessage)
			}
			printAsset(out, "Photos", l.Assets.PhotosDir)
			printAsset(out, "Processed", l.Assets.ProcessedDir)
			printAsset(out, "Script", l.Assets.ScriptRef)
			printAsset(out, "Voiceover", l.Assets.VoiceoverRef)
			printAsset(out, "QR code", l.Assets.QRRef)
			printAsset(out, "Video", l.Assets.VideoRef)
			return nil
		},
	}
}

func printAsset(out io.Writer, label, path string) {
	if path == "" {
		return
	}
	fmt.Fprintf(out, "  %s: %s\n", label, path)
}

func parseListingID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("listing id must be a positive integer, got %q", raw)
	}
	return id, nil
}
