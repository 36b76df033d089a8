// nightfoxfilms-sub014: content-addressed photo/video/document import
// pipeline for location archives, with HTML reporting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/config"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hardware"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/logging"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/orchestrator"
)

func main() {
	var (
		srcDirs      []string
		archiveBase  string
		dbPath       string
		reportPath   string
		configFile   string
		locid        string
		addrState    string
		subid        string
		importer     string
		notes        string
		resumeID     string
		interactive  bool
		verbose      bool
		hashWorkers  int
		copyWorkers  int
		copyWorkersN int
	)

	rootCmd := &cobra.Command{
		Use:   "nightfoxfilms-import",
		Short: "Import photos, videos, documents, and maps into a content-addressed location archive",
		Long: `nightfoxfilms-import runs the five-stage scan/hash/copy/validate/finalize
pipeline that moves source media into a BLAKE3 content-addressed archive,
deduplicating against everything already on file and recording every
import in a resumable SQLite session.

Features:
- Deduplicates via BLAKE3-16 content hashes against the archive database
- Adapts worker counts and I/O strategy to local vs. network storage
- Resumes a crashed or cancelled import from its last completed stage
- Locks a location for the duration of an import to prevent concurrent writers
- Generates an HTML report summarizing every stage's outcome
`,
		Example: `  # Import one or more source directories into a location
  nightfoxfilms-import --src ~/DCIM --archive /mnt/archive --locid aaaaaaaaaaaaaaaa --state NY

  # Resume a previously interrupted import
  nightfoxfilms-import --resume 3fa9c1d2-... --archive /mnt/archive

  # Run with prompts for everything
  nightfoxfilms-import --interactive
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(os.Args) == 1 {
				interactive = true
			}

			if interactive {
				srcDirs, archiveBase, locid, addrState, subid, importer = interactivePrompt(archiveBase)
			}

			if archiveBase == "" {
				return fmt.Errorf("--archive is required")
			}
			if dbPath == "" {
				dbPath = filepath.Join(archiveBase, "core.db")
			}
			if reportPath == "" {
				reportPath = filepath.Join(archiveBase, fmt.Sprintf("import_report_%s.html", time.Now().UTC().Format("20060102_150405")))
			}

			// Only bind values the user actually supplied, so an unset
			// CLI flag falls through to env/config/default instead of
			// shadowing them with an empty or zero pflag default.
			flags := pflag.NewFlagSet("nightfoxfilms-import", pflag.ContinueOnError)
			if archiveBase != "" {
				flags.String("archive_base", archiveBase, "")
			}
			if dbPath != "" {
				flags.String("db_path", dbPath, "")
			}
			if hashWorkers > 0 {
				flags.Int("hash_workers", hashWorkers, "")
			}
			if copyWorkers > 0 {
				flags.Int("copy_workers", copyWorkers, "")
			}
			if copyWorkersN > 0 {
				flags.Int("copy_workers_network", copyWorkersN, "")
			}
			if verbose {
				flags.Bool("verbose", verbose, "")
			}
			if interactive {
				flags.Bool("interactive", interactive, "")
			}

			cfg, err := config.Load(flags, configFile)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Verbose, interactive)
			if err != nil {
				return fmt.Errorf("logging.New: %w", err)
			}
			defer logger.Sync()

			if interactive {
				printBanner()
			}

			profile := hardware.Detect()
			if cfg.HashWorkers > 0 || cfg.CopyWorkers > 0 || cfg.CopyWorkersNetwork > 0 {
				hw, cw, cwn := profile.HashWorkers, profile.CopyWorkers, profile.CopyWorkersNetwork
				if cfg.HashWorkers > 0 {
					hw = cfg.HashWorkers
				}
				if cfg.CopyWorkers > 0 {
					cw = cfg.CopyWorkers
				}
				if cfg.CopyWorkersNetwork > 0 {
					cwn = cfg.CopyWorkersNetwork
				}
				profile = hardware.Static(hw, cw, cwn)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(interrupt)

			if !checkExternalTool("exiftool") {
				logger.Warn("exiftool not found in PATH; EXIFTOOL jobs enqueued by this import will fail until it is installed")
			}
			if free, err := getFreeSpace(cfg.ArchiveBase); err == nil && free < uint64(dbMinPadding) {
				logger.Sugar().Warnw("low free space on archive volume", "free_bytes", free)
			}

			database, err := db.Open(ctx, cfg.DBPath)
			if err != nil {
				return fmt.Errorf("db.Open: %w", err)
			}
			defer database.Close()

			orch := orchestrator.New(database, cfg.ArchiveBase, profile)

			go func() {
				<-interrupt
				logger.Warn("interrupt received, cancelling in-flight import")
				orch.Cancel()
				cancel()
			}()

			opts := orchestrator.Options{
				Importer: importer,
				Notes:    notes,
				Logger:   logger.Sugar(),
				OnProgress: func(ev model.ProgressEvent) {
					logger.Sugar().Infow("progress", "step", ev.Step, "percent", ev.Percent,
						"processed", ev.FilesProcessed, "total", ev.FilesTotal, "file", ev.CurrentFile)
					if ev.Step == 1 && ev.BytesTotal > 0 {
						needed := ev.BytesTotal + estimateDBSize(ev.FilesTotal)
						if free, err := getFreeSpace(cfg.ArchiveBase); err == nil && free < uint64(needed) {
							logger.Sugar().Warnw("archive volume may not have enough free space for this import",
								"free_bytes", free, "needed_bytes", needed)
						}
					}
				},
			}

			var result model.ImportResult
			if resumeID != "" {
				result = orch.Resume(ctx, resumeID, opts)
			} else {
				if locid == "" {
					return fmt.Errorf("--locid is required unless --resume is given")
				}
				loc := model.LocationInfo{LocID: locid, AddressState: addrState, SubID: subid}
				result = orch.Import(ctx, srcDirs, loc, opts)
			}

			if err := writeHTMLReport(reportPath, result); err != nil {
				logger.Sugar().Errorw("failed to write HTML report", "error", err)
			} else {
				logger.Sugar().Infow("report written", "path", reportPath)
			}

			if result.Status == model.SessionFailed {
				return fmt.Errorf("import failed: %s", result.Error)
			}
			fmt.Printf("\nSession %s: %s\n", result.SessionID, result.Status)
			return nil
		},
	}

	rootCmd.Flags().StringSliceVarP(&srcDirs, "src", "s", nil, "Source directory (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&archiveBase, "archive", "a", "", "Archive base directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the archive SQLite database")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "Path to the generated HTML report")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Optional config file path")
	rootCmd.Flags().StringVar(&locid, "locid", "", "16-hex location id")
	rootCmd.Flags().StringVar(&addrState, "state", "", "2-letter state token for the location")
	rootCmd.Flags().StringVar(&subid, "subid", "", "16-hex sub-location id")
	rootCmd.Flags().StringVar(&importer, "importer", "", "Name recorded as the importer")
	rootCmd.Flags().StringVar(&notes, "notes", "", "Free-text notes recorded on the import")
	rootCmd.Flags().StringVar(&resumeID, "resume", "", "Resume a previously interrupted session by id")
	rootCmd.Flags().BoolVar(&interactive, "interactive", false, "Run in interactive mode (prompts for input)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.Flags().IntVar(&hashWorkers, "hash-workers", 0, "Override detected hash worker count")
	rootCmd.Flags().IntVar(&copyWorkers, "copy-workers", 0, "Override detected local copy worker count")
	rootCmd.Flags().IntVar(&copyWorkersN, "copy-workers-network", 0, "Override detected network copy worker count")

	rootCmd.AddCommand(newMaintenanceCmd(&dbPath, &archiveBase))
	rootCmd.AddCommand(newQueueCmd(&dbPath, &archiveBase))

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
