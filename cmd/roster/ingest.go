package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rpattn/roster/internal/domain"
	"github.com/rpattn/roster/internal/ingestion"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// ingestOutput mirrors the upload response for terminal use.
type ingestOutput struct {
	Kind          domain.EntityKind `json:"kind"`
	File          string            `json:"file"`
	Total         int               `json:"total"`
	InsertedCount int               `json:"insertedCount"`
	Duplicates    int               `json:"duplicates"`
	Errors        int               `json:"errors"`
	ErrorDetails  []string          `json:"errorDetails"`
}

func newIngestCommand(load loader) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "ingest --kind <kind> <file.csv>",
		Short: "Run a CSV file through the ingestion pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.SpecFor(domain.EntityKind(kind)); err != nil {
				return errors.WithHintf(err, "valid kinds: %v", domain.Kinds())
			}

			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to open csv")
			}
			defer file.Close()

			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.ingestionService()
			result, err := svc.Ingest(cmd.Context(), ingestion.Request{
				Kind:     domain.EntityKind(kind),
				FileName: filepath.Base(args[0]),
				Data:     file,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ingestOutput{
				Kind:          result.Kind,
				File:          filepath.Base(args[0]),
				Total:         result.TotalRows,
				InsertedCount: result.InsertedCount(),
				Duplicates:    result.DuplicateCount,
				Errors:        result.ErrorCount,
				ErrorDetails:  result.ErrorDetails(svc.MaxErrorDetails()),
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "entity kind: participants, priority-pass, screenshot-pending or submissions")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
