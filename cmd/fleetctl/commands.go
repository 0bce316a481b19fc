package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zoobzio/clockz"

	"github.com/fleetops/fleetops/internal/compatibility"
	"github.com/fleetops/fleetops/internal/compliance"
	"github.com/fleetops/fleetops/internal/export"
	"github.com/fleetops/fleetops/internal/fleet"
)

func newCheckCmd(opts *options) *cobra.Command {
	var vehicleID, trailerID, province string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a vehicle can tow a trailer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			report, err := svc.CheckCompatibility(cmd.Context(), vehicleID, trailerID, strings.ToUpper(province))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&vehicleID, "vehicle", "", "vehicle ID")
	cmd.Flags().StringVar(&trailerID, "trailer", "", "trailer ID")
	cmd.Flags().StringVar(&province, "province", "", "province code (default ON)")
	_ = cmd.MarkFlagRequired("vehicle")
	_ = cmd.MarkFlagRequired("trailer")

	return cmd
}

func newMatchCmd(opts *options) *cobra.Command {
	var trailerID string
	var maxResults int

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank the vehicles best suited to tow a trailer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if maxResults < 0 || maxResults > 50 {
				return fmt.Errorf("--max must be between 0 and 50, got %d", maxResults)
			}
			svc, err := opts.service()
			if err != nil {
				return err
			}
			report, err := svc.BestMatches(cmd.Context(), trailerID, maxResults)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&trailerID, "trailer", "", "trailer ID")
	cmd.Flags().IntVar(&maxResults, "max", compatibility.DefaultMaxResults, "maximum number of matches")
	_ = cmd.MarkFlagRequired("trailer")

	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	var detailed bool
	var assetID, assetType string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report fleet or asset compliance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}

			if assetID == "" {
				report, err := svc.FleetStatus(cmd.Context(), detailed)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			}

			kind := compliance.AssetType(strings.ToUpper(assetType))
			if !kind.Valid() {
				return fmt.Errorf("--type must be VEHICLE, TRAILER or DRIVER, got %q", assetType)
			}
			report, err := svc.AssetStatus(cmd.Context(), assetID, kind, detailed)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "include per-province and per-asset-type detail")
	cmd.Flags().StringVar(&assetID, "asset", "", "report a single asset instead of the fleet")
	cmd.Flags().StringVar(&assetType, "type", string(compliance.AssetVehicle), "asset type for --asset")

	return cmd
}

func newTimelineCmd(opts *options) *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Bucket upcoming renewals by month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			timeline, err := svc.RenewalTimeline(cmd.Context())
			if err != nil {
				return err
			}

			if xlsxPath == "" {
				return writeJSON(cmd.OutOrStdout(), timeline)
			}

			f, err := os.Create(xlsxPath)
			if err != nil {
				return err
			}
			if err := export.WriteRenewals(f, timeline); err != nil {
				f.Close()
				return fmt.Errorf("write workbook: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d months to %s\n", len(timeline), xlsxPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the timeline as an XLSX workbook to this path")

	return cmd
}

// service loads the fleet fixture into an in-memory store.
func (o *options) service() (*fleet.Service, error) {
	records, err := fleet.LoadFixtureFile(o.fleet)
	if err != nil {
		return nil, err
	}
	clock, err := o.clock()
	if err != nil {
		return nil, err
	}

	repo := fleet.NewInMemoryRepository()
	repo.Load(records)

	return fleet.NewService(fleet.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		Clock:      clock,
	}), nil
}

func (o *options) clock() (clockz.Clock, error) {
	if o.now == "" {
		return clockz.RealClock, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, o.now); err == nil {
			return clockz.NewFakeClockAt(t), nil
		}
	}
	return nil, fmt.Errorf("invalid --now %q: want 2006-01-02 or RFC 3339", o.now)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
