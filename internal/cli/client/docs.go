package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/cobra"
)

// Document is the result of indexing one source document.
type Document struct {
	ID            string `json:"id"`
	SourceID      string `json:"source_id"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Title         string `json:"title"`
	Chunks        int    `json:"chunks"`
	JobID         string `json:"job_id,omitempty"`
	Stored        bool   `json:"stored"`
}

// DateCoverage summarises the effective dates of the indexed documents.
type DateCoverage struct {
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`
	Distinct int    `json:"distinct"`
}

// DocsCmd creates the docs parent command.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Upload and download source documents",
	}

	cmd.AddCommand(docsUploadCmd())
	cmd.AddCommand(docsDatesCmd())
	cmd.AddCommand(docsTextCmd())
	cmd.AddCommand(docsOriginalCmd())

	return cmd
}

func docsUploadCmd() *cobra.Command {
	var sourceID, effectiveDate string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF, Markdown or text document for indexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocsUpload(api, cmd.OutOrStdout(), args[0], sourceID, effectiveDate, outputJSON(cmd))
		},
	}

	cmd.Flags().StringVar(&sourceID, "source-id", "", "Source id to cite (default: file name)")
	cmd.Flags().StringVar(&effectiveDate, "effective-date", "", "Date the document takes effect (YYYY-MM-DD)")

	return cmd
}

func docsDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "Show the range of effective dates in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocsDates(api, cmd.OutOrStdout(), outputJSON(cmd))
		},
	}
}

func docsTextCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "text <source-id>",
		Short: "Download the full text of a source document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = fullTextName(args[0])
			}
			if err := api.DownloadDocumentText(args[0], output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "Where to write the text (default: <name>_full.txt)")

	return cmd
}

func docsOriginalCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "original <source-id>",
		Short: "Download the originally uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = path.Base(args[0])
			}
			return runDocsOriginal(api, cmd.OutOrStdout(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "Where to write the file (default: base name of the source id)")

	return cmd
}

func runDocsUpload(api *APIClient, out io.Writer, filePath, sourceID, effectiveDate string, asJSON bool) error {
	resp, err := api.PostFile("/documents", filePath, map[string]string{
		"source_id":      sourceID,
		"effective_date": effectiveDate,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if asJSON {
		return printJSON(out, doc)
	}

	fmt.Fprintf(out, "Indexed %s (%d chunks)\n", doc.SourceID, doc.Chunks)
	if doc.EffectiveDate != "" {
		fmt.Fprintf(out, "   Effective date: %s\n", doc.EffectiveDate)
	}
	if doc.JobID != "" {
		fmt.Fprintf(out, "   Embedding job: %s\n", doc.JobID)
	}
	return nil
}

func runDocsDates(api *APIClient, out io.Writer, asJSON bool) error {
	resp, err := api.Get("/documents/date-range")
	if err != nil {
		return fmt.Errorf("date range failed: %w", err)
	}
	var cov DateCoverage
	if err := json.Unmarshal(resp.Data, &cov); err != nil {
		return fmt.Errorf("failed to parse date range: %w", err)
	}

	if asJSON {
		return printJSON(out, cov)
	}

	if cov.Distinct == 0 {
		fmt.Fprintln(out, "No dated documents indexed.")
		return nil
	}
	fmt.Fprintf(out, "Effective dates: %s to %s (%d distinct)\n", cov.Earliest, cov.Latest, cov.Distinct)
	return nil
}

func runDocsOriginal(api *APIClient, out io.Writer, sourceID, output string) error {
	resp, err := api.Get("/documents/download?redirect=false&source_id=" + url.QueryEscape(sourceID))
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	var link struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Data, &link); err != nil {
		return fmt.Errorf("failed to parse download link: %w", err)
	}
	if err := api.DownloadFile(link.URL, output); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s\n", output)
	return nil
}

func fullTextName(sourceID string) string {
	name := path.Base(strings.ReplaceAll(sourceID, `\`, "/"))
	if ext := path.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	return name + "_full.txt"
}
