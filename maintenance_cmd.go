// nightfoxfilms-sub014: content-addressed photo/video/document import
// pipeline for location archives, with HTML reporting.
package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/maintenance"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/queue"
)

// openMaintenanceDB resolves --db relative to --archive (matching the root
// command's own default) and opens it.
func openMaintenanceDB(cmd *cobra.Command, dbPath, archiveBase *string) (*db.DB, error) {
	path := *dbPath
	if path == "" {
		if *archiveBase == "" {
			return nil, fmt.Errorf("--archive or --db is required")
		}
		path = filepath.Join(*archiveBase, "core.db")
	}
	return db.Open(cmd.Context(), path)
}

// newMaintenanceCmd builds the non-default "maintenance" subcommand group
// exposing the standalone repair operations SPEC_FULL.md §C.5 promises:
// orphan-file detection and missing-hero-image backfill.
func newMaintenanceCmd(dbPath *string, archiveBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run standalone archive repair operations",
	}

	orphansCmd := &cobra.Command{
		Use:   "orphans",
		Short: "List archive files with no matching media-table row",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openMaintenanceDB(cmd, dbPath, archiveBase)
			if err != nil {
				return fmt.Errorf("db.Open: %w", err)
			}
			defer database.Close()

			orphans, err := maintenance.FindOrphanFiles(cmd.Context(), database, *archiveBase)
			if err != nil {
				return err
			}
			if len(orphans) == 0 {
				fmt.Println("no orphan files found")
				return nil
			}
			for _, o := range orphans {
				fmt.Printf("%s\tlocid=%s\ttype=%s\thash=%s\n", o.Path, o.LocID, o.MediaType, o.Hash)
			}
			fmt.Printf("\n%d orphan file(s)\n", len(orphans))
			return nil
		},
	}

	heroCmd := &cobra.Command{
		Use:   "backfill-hero",
		Short: "Assign a hero image to every location missing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openMaintenanceDB(cmd, dbPath, archiveBase)
			if err != nil {
				return fmt.Errorf("db.Open: %w", err)
			}
			defer database.Close()

			n, err := maintenance.AssignMissingHeroImages(cmd.Context(), database)
			if err != nil {
				return err
			}
			fmt.Printf("assigned hero image for %d location(s)\n", n)
			return nil
		},
	}

	cmd.AddCommand(orphansCmd, heroCmd)
	return cmd
}

// newQueueCmd builds the non-default "queue" subcommand group exposing the
// queue depth inspection SPEC_FULL.md §C.4 promises.
func newQueueCmd(dbPath, archiveBase *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the downstream job queue",
	}

	statusCmd := &cobra.Command{
		Use:   "status <queue-name>",
		Short: "Count jobs in a queue by status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openMaintenanceDB(cmd, dbPath, archiveBase)
			if err != nil {
				return fmt.Errorf("db.Open: %w", err)
			}
			defer database.Close()

			jobType, err := parseJobType(args[0])
			if err != nil {
				return err
			}
			counts, err := queue.New(database).CountByStatus(cmd.Context(), jobType)
			if err != nil {
				return err
			}
			if len(counts) == 0 {
				fmt.Printf("%s: empty\n", jobType)
				return nil
			}
			for status, n := range counts {
				fmt.Printf("%s\t%s\t%d\n", jobType, status, n)
			}
			return nil
		},
	}

	peekCmd := &cobra.Command{
		Use:   "peek <queue-name>",
		Short: "Show the oldest pending jobs in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openMaintenanceDB(cmd, dbPath, archiveBase)
			if err != nil {
				return fmt.Errorf("db.Open: %w", err)
			}
			defer database.Close()

			jobType, err := parseJobType(args[0])
			if err != nil {
				return err
			}
			jobs, err := queue.New(database).Peek(cmd.Context(), jobType, limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Printf("%s: no pending jobs\n", jobType)
				return nil
			}
			for _, j := range jobs {
				fmt.Printf("%s\tdepends_on=%s\tpriority=%s\tcreated=%s\n", j.ID, j.DependsOn, j.Priority, j.CreatedAt.Format("2006-01-02T15:04:05Z"))
			}
			return nil
		},
	}
	peekCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to show")

	cmd.AddCommand(statusCmd, peekCmd)
	return cmd
}

func parseJobType(name string) (model.JobType, error) {
	jt := model.JobType(strings.ToUpper(name))
	switch jt {
	case model.JobExifTool, model.JobFFProbe, model.JobThumbnail, model.JobVideoProxy,
		model.JobImageTagging, model.JobGPSEnrichment, model.JobLivePhoto, model.JobSRTTelemetry,
		model.JobLocationStats, model.JobBagIt, model.JobLocationTagAggregation:
		return jt, nil
	default:
		return "", fmt.Errorf("unknown queue %q", name)
	}
}
