package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/briefdesk/contract-engine/internal/ingest"
	"github.com/briefdesk/contract-engine/pkg/engine"
)

const version = "1.0.0"

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	var (
		documentID string
		title      string
		reingest   bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document text file into the engine",
		Long: `Ingest reads a plain-text contract, normalizes and annotates it,
splits it into chunks, embeds the chunks and stores everything.

Re-running ingest on unchanged content is a no-op. Pass --reingest to
force a rebuild, for example after changing chunking settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			docID, err := resolveDocumentID(documentID)
			if err != nil {
				return err
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			eng, err := engine.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("start engine: %w", err)
			}
			defer eng.Close()

			var bar *progressbar.ProgressBar
			if !outputJSON {
				eng.SetProgress(func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetDescription("embedding"),
							progressbar.OptionSetWriter(os.Stderr),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(done)
				})
			}

			start := time.Now()
			var result *ingest.Result
			if reingest {
				result, err = eng.Reingest(ctx, docID, title, string(raw))
			} else {
				result, err = eng.Ingest(ctx, docID, title, string(raw))
			}
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			if outputJSON {
				return printJSON(map[string]any{
					"document_id": docID.String(),
					"title":       title,
					"chunks":      result.ChunksCreated,
					"words":       result.WordCount,
					"skipped":     result.Skipped,
					"duration_ms": time.Since(start).Milliseconds(),
				})
			}
			if result.Skipped {
				printInfo("Document %s unchanged, skipped", docID)
				return nil
			}
			printSuccess("Ingested %q as %s: %d chunks, %d words in %s",
				title, docID, result.ChunksCreated, result.WordCount, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "id", "", "document UUID (generated when omitted)")
	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the file name)")
	cmd.Flags().BoolVar(&reingest, "reingest", false, "discard stored chunks and rebuild from scratch")
	return cmd
}

// newAskCmd creates the ask subcommand.
func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <document-id> <question>",
		Short: "Retrieve the context a question would be answered from",
		Long: `Ask routes the question through intent classification and retrieval
and prints the assembled context. An empty result means nothing
relevant was found or retrieval failed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			docID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse document id: %w", err)
			}

			eng, err := engine.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("start engine: %w", err)
			}
			defer eng.Close()

			assembled := eng.RetrieveContext(ctx, docID, args[1])

			if outputJSON {
				return printJSON(map[string]any{
					"document_id": docID.String(),
					"question":    args[1],
					"context":     assembled,
				})
			}
			if assembled == "" {
				printWarn("No context retrieved")
				return nil
			}
			fmt.Println(assembled)
			return nil
		},
	}
	return cmd
}

// newListCmd creates the list subcommand.
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			eng, err := engine.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("start engine: %w", err)
			}
			defer eng.Close()

			docs, err := eng.Documents(ctx)
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}

			if outputJSON {
				return printJSON(docs)
			}
			if len(docs) == 0 {
				printInfo("No documents ingested")
				return nil
			}
			for _, doc := range docs {
				fmt.Printf("%s  %-40s  %5d chunks  %7d words  %s\n",
					doc.ID, truncate(doc.Title, 40), doc.ChunkCount, doc.WordCount,
					doc.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	return cmd
}

// newStatsCmd creates the stats subcommand.
func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show document, chunk and vector counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			eng, err := engine.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("start engine: %w", err)
			}
			defer eng.Close()

			stats, err := eng.Stats(ctx)
			if err != nil {
				return fmt.Errorf("collect stats: %w", err)
			}

			if outputJSON {
				return printJSON(map[string]any{
					"documents": stats.Documents,
					"chunks":    stats.Chunks,
					"vectors":   stats.Vectors,
				})
			}
			fmt.Printf("Documents: %d\nChunks:    %d\nVectors:   %d\n",
				stats.Documents, stats.Chunks, stats.Vectors)
			return nil
		},
	}
	return cmd
}

// newDeleteCmd creates the delete subcommand.
func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and all its chunks, vectors and cached contexts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			docID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse document id: %w", err)
			}

			if !force && !outputJSON {
				fmt.Printf("Delete document %s and all derived data? [y/N] ", docID)
				var answer string
				fmt.Scanln(&answer)
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					printInfo("Aborted")
					return nil
				}
			}

			eng, err := engine.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("start engine: %w", err)
			}
			defer eng.Close()

			if err := eng.Delete(ctx, docID); err != nil {
				return fmt.Errorf("delete document: %w", err)
			}

			if outputJSON {
				return printJSON(map[string]any{"document_id": docID.String(), "deleted": true})
			}
			printSuccess("Deleted %s", docID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the contract-engine version",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				_ = printJSON(map[string]string{"version": version})
				return
			}
			fmt.Println("contract-engine", version)
		},
	}
}

func resolveDocumentID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse document id: %w", err)
	}
	return id, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSuccess(format string, args ...any) {
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	color.New(color.FgCyan).Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

func printWarn(format string, args ...any) {
	color.New(color.FgYellow).Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}
