/*
cmd.go - bestdocctl command definitions

PURPOSE:
  Cobra commands for running the pipeline without the HTTP service:

    bestdocctl process <batch.json>   run one cycle, write artifacts
    bestdocctl pending                show groups awaiting a document
    bestdocctl records                list the ledger with statistics

  All commands share the server's configuration (and therefore its
  database), so the CLI and the service see the same ledger.
*/
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/splach-coder/dkm-apis/bestdoc"
	"github.com/splach-coder/dkm-apis/canvas/plaintext"
	"github.com/splach-coder/dkm-apis/config"
	"github.com/splach-coder/dkm-apis/ledger"
	"github.com/splach-coder/dkm-apis/store/sqlite"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "bestdocctl",
	Short:        "Operate the bestemmingsdocument pipeline from the command line",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "bestdoc.yaml", "YAML config path")
	rootCmd.AddCommand(processCmd, pendingCmd, recordsCmd)
}

// =============================================================================
// process
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process <batch.json>",
	Short: "Run one ingestion-and-render cycle for a JSON batch file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, led, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read batch file: %w", err)
		}
		var batch struct {
			Table1 []ledger.RawRecord `json:"Table1"`
		}
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("parse batch file: %w", err)
		}

		renderer := bestdoc.NewDocumentRenderer(func() bestdoc.DocumentCanvas {
			return plaintext.New(cfg.Page.BodyWidth, cfg.Page.BodyHeight)
		})
		processor := bestdoc.NewProcessor(led, renderer)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		resp, err := processor.Run(ctx, batch.Table1)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		for _, doc := range resp.Documents {
			raw, err := base64.StdEncoding.DecodeString(doc.PayloadBase64)
			if err != nil {
				return fmt.Errorf("decode artifact %s: %w", doc.Filename, err)
			}
			path := filepath.Join(cfg.OutputDir, doc.Filename)
			if err := os.WriteFile(path, raw, 0o644); err != nil {
				return fmt.Errorf("write artifact %s: %w", path, err)
			}
			fmt.Printf("wrote %s (%d pages, %d records)\n", path, doc.Manifest.PageCount, len(doc.Manifest.MemberRecordIDs))
		}
		for _, e := range resp.Errors {
			fmt.Printf("group %s failed: %s\n", e.GroupKey, e.Error)
		}
		fmt.Printf("received %d, new %d, groups processed %d\n",
			resp.Duplicates.TotalReceived, resp.Duplicates.ActuallyNew, resp.ProcessedGroups)
		return nil
	},
}

// =============================================================================
// pending
// =============================================================================

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List groups that still need a document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, led, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pending, err := led.PendingGroups(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("no pending groups")
			return nil
		}

		keys := make([]ledger.GroupKey, 0, len(pending))
		for k := range pending {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			fmt.Printf("%s: %d unprocessed record(s) %v\n", k, len(pending[k].Members), pending[k].MemberIDs())
		}
		return nil
	},
}

// =============================================================================
// records
// =============================================================================

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List every ledger entry with its processing status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, led, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		snap, err := led.Snapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total %d, pending %d, generated %d\n",
			snap.Statistics.TotalRecords, snap.Statistics.PendingCount, snap.Statistics.GeneratedCount)
		for _, rec := range snap.Records {
			status := "pending"
			if rec.Processed {
				status = "done -> " + rec.ArtifactRef
			}
			fmt.Printf("%8d  %-30s %s  %s\n", rec.ID, rec.GroupKey, rec.Date, status)
		}
		return nil
	},
}

// =============================================================================
// SHARED SETUP
// =============================================================================

func setup() (config.Config, *ledger.Ledger, *sqlite.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, nil, nil, err
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	led := ledger.New(store)
	if cfg.StateKey != "" {
		led = ledger.NewWithKey(store, cfg.StateKey)
	}
	return cfg, led, store, nil
}
