package admin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/citewise/internal/config"
	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/extract"
	"github.com/cloo-solutions/citewise/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file|dir>...",
		Short: "Index documents for retrieval",
		Long: `Index text, markdown and PDF files. Directories are walked recursively and
every file is indexed under its path relative to the directory. Embeddings are
computed later by the server's background worker.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("effective-date", "", "Effective date (YYYY-MM-DD) applied to every file")
	cmd.Flags().String("source-id", "", "Source id for a single file (default: file name)")
	cmd.Flags().Bool("no-store", false, "Do not upload originals to S3 even when configured")

	return cmd
}

// ingestFile is one file to index together with the source id it is cited by.
type ingestFile struct {
	path     string
	sourceID string
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var effectiveDate *time.Time
	if raw, _ := cmd.Flags().GetString("effective-date"); raw != "" {
		t, err := time.Parse(domain.EffectiveDateLayout, raw)
		if err != nil {
			return fmt.Errorf("invalid --effective-date: %w", err)
		}
		effectiveDate = &t
	}

	sourceID, _ := cmd.Flags().GetString("source-id")
	files, err := collectIngestFiles(args, sourceID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no files to ingest")
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var docStorage service.DocumentStorage
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		docStorage, err = openDocumentStorage(ctx, cfg)
		if err != nil {
			return err
		}
	}

	ingestSvc := service.NewIngestService(st.txRunner, st.documents, docStorage)

	var failed int
	for _, f := range files {
		out, err := ingestOne(ctx, ingestSvc, f, effectiveDate)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f.path, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks\t%s\n", out.Document.SourceID, out.ChunkCount, out.Document.ID)
	}

	log.Printf("ingest: %d indexed, %d failed", len(files)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func ingestOne(ctx context.Context, svc *service.IngestService, f ingestFile, effectiveDate *time.Time) (*service.IngestOutput, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	extracted, err := extract.Text(f.path, data)
	if err != nil {
		return nil, err
	}

	return svc.Ingest(ctx, service.IngestInput{
		SourceID:      f.sourceID,
		EffectiveDate: effectiveDate,
		Text:          extracted.Text,
		Original:      data,
		ContentType:   extracted.ContentType,
	})
}

// collectIngestFiles expands directories. sourceID overrides the id of a single
// file argument.
func collectIngestFiles(args []string, sourceID string) ([]ingestFile, error) {
	if sourceID != "" && len(args) > 1 {
		return nil, errors.New("--source-id can only be used with a single file")
	}

	var files []ingestFile
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			id := sourceID
			if id == "" {
				id = filepath.ToSlash(filepath.Base(arg))
			}
			files = append(files, ingestFile{path: arg, sourceID: id})
			continue
		}

		if sourceID != "" {
			return nil, errors.New("--source-id cannot be used with a directory")
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || !supportedExtension(path) {
				return nil
			}
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}
			files = append(files, ingestFile{path: path, sourceID: filepath.ToSlash(rel)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func supportedExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md", ".markdown":
		return true
	}
	return false
}
