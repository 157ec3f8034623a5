package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/citewise/internal/api"
	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/extract"
	"github.com/cloo-solutions/citewise/internal/service"
)

const maxUploadMemory = 32 << 20

type DocumentService interface {
	DateCoverage(ctx context.Context) (*domain.DateCoverage, error)
	FullText(ctx context.Context, sourceID string) (string, error)
	DownloadURL(ctx context.Context, sourceID string) (string, error)
}

type IngestService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestOutput, error)
}

type DocumentHandler struct {
	docs   DocumentService
	ingest IngestService
}

func NewDocumentHandler(docs DocumentService, ingest IngestService) *DocumentHandler {
	return &DocumentHandler{docs: docs, ingest: ingest}
}

type CreateDocumentRequest struct {
	SourceID      string `json:"source_id"`
	EffectiveDate string `json:"effective_date"`
	Text          string `json:"text"`
}

type DocumentResponse struct {
	ID            string `json:"id"`
	SourceID      string `json:"source_id"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Title         string `json:"title"`
	Chunks        int    `json:"chunks"`
	JobID         string `json:"job_id,omitempty"`
	Stored        bool   `json:"stored"`
}

type DateRangeResponse struct {
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`
	Distinct int    `json:"distinct"`
}

// Create indexes a document. JSON bodies carry the text directly; multipart
// uploads carry a "file" part whose text is extracted and whose bytes are kept.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		input service.IngestInput
		err   error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		input, err = ingestInputFromMultipart(r)
	} else {
		input, err = ingestInputFromJSON(r)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out, err := h.ingest.Ingest(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &DocumentResponse{
		ID:       out.Document.ID,
		SourceID: out.Document.SourceID,
		Title:    out.Document.Title,
		Chunks:   out.ChunkCount,
		JobID:    out.JobID,
		Stored:   out.Document.StorageKey != "",
	}
	if out.Document.EffectiveDate != nil {
		resp.EffectiveDate = out.Document.EffectiveDate.Format(domain.EffectiveDateLayout)
	}
	api.Success(w, http.StatusCreated, resp)
}

func ingestInputFromJSON(r *http.Request) (service.IngestInput, error) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.IngestInput{}, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid request body", err)
	}
	date, err := parseEffectiveDate(req.EffectiveDate)
	if err != nil {
		return service.IngestInput{}, err
	}
	return service.IngestInput{SourceID: req.SourceID, EffectiveDate: date, Text: req.Text}, nil
}

func ingestInputFromMultipart(r *http.Request) (service.IngestInput, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return service.IngestInput{}, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid multipart body", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return service.IngestInput{}, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "file is required", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.IngestInput{}, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "failed to read upload", err)
	}

	extracted, err := extract.Text(header.Filename, data)
	if err != nil {
		return service.IngestInput{}, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "cannot read document", err)
	}

	date, err := parseEffectiveDate(r.FormValue("effective_date"))
	if err != nil {
		return service.IngestInput{}, err
	}

	sourceID := r.FormValue("source_id")
	if strings.TrimSpace(sourceID) == "" {
		sourceID = header.Filename
	}

	return service.IngestInput{
		SourceID:      sourceID,
		EffectiveDate: date,
		Text:          extracted.Text,
		Original:      data,
		ContentType:   extracted.ContentType,
	}, nil
}

func parseEffectiveDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.EffectiveDateLayout, raw)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid effective_date", err)
	}
	return &t, nil
}

func (h *DocumentHandler) DateRange(w http.ResponseWriter, r *http.Request) {
	coverage, err := h.docs.DateCoverage(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &DateRangeResponse{Distinct: coverage.Distinct}
	if coverage.Earliest != nil {
		resp.Earliest = coverage.Earliest.Format(domain.EffectiveDateLayout)
	}
	if coverage.Latest != nil {
		resp.Latest = coverage.Latest.Format(domain.EffectiveDateLayout)
	}
	api.Success(w, http.StatusOK, resp)
}

// Text serves the complete text of a source document as a file download.
func (h *DocumentHandler) Text(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source_id")
	if sourceID == "" {
		api.Error(w, http.StatusBadRequest, "source_id is required")
		return
	}

	text, err := h.docs.FullText(r.Context(), sourceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName(sourceID)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

// Download redirects to a presigned URL of the uploaded original.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source_id")
	if sourceID == "" {
		api.Error(w, http.StatusBadRequest, "source_id is required")
		return
	}

	url, err := h.docs.DownloadURL(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrStorageNotAvailable) {
			api.Error(w, http.StatusNotImplemented, "document storage not configured")
			return
		}
		api.HandleError(w, err)
		return
	}

	if r.URL.Query().Get("redirect") == "false" {
		api.Success(w, http.StatusOK, map[string]string{"url": url})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func downloadName(sourceID string) string {
	name := sourceID
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "document"
	}
	return name + "_full.txt"
}
