//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/citewise/internal/api/handlers"
	"github.com/cloo-solutions/citewise/internal/api/middleware"
	"github.com/cloo-solutions/citewise/internal/repository"
	"github.com/cloo-solutions/citewise/internal/server"
	"github.com/cloo-solutions/citewise/internal/service"
	"github.com/cloo-solutions/citewise/internal/storage"
	"github.com/cloo-solutions/citewise/internal/testutil"
)

const (
	testToken   = "e2e-token"
	testUserID  = "e2e-user"
	otherToken  = "e2e-other-token"
	otherUserID = "e2e-other"
	embedDims   = 1536
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	Embeddings   *service.EmbeddingService
	LLM          *fakeLLM
	BinaryDir    string
	AuthToken    string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres, RustFS and an API server backed by a scripted LLM.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	llm := &fakeLLM{answer: "Records are retained for seven years [1]."}
	serverURL, serverCloser, embeddings := startServer(t, pool, s3Client, llm, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		Embeddings:   embeddings,
		LLM:          llm,
		AuthToken:    testToken,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// EmbedAll runs the embedding pass the background worker would run.
func (e *E2ETestEnv) EmbedAll() {
	rows, err := e.Pool.Query(e.Ctx, "SELECT id FROM documents")
	if err != nil {
		e.T.Fatalf("failed to list documents: %v", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			e.T.Fatalf("failed to scan document id: %v", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if err := e.Embeddings.EmbedDocument(e.Ctx, id); err != nil {
			e.T.Fatalf("failed to embed document %s: %v", id, err)
		}
	}
}

// BuildBinaries builds the citewise client binary
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "citewise-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "citewise"), "./cmd/citewise")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build citewise: %v\n%s", err, out)
	}
}

// RunCitewise runs the citewise CLI against the test server
func (e *E2ETestEnv) RunCitewise(workDir string, args ...string) (string, error) {
	return e.RunCitewiseWithInput(workDir, "", args...)
}

// RunCitewiseWithInput runs the citewise CLI with stdin input
func (e *E2ETestEnv) RunCitewiseWithInput(workDir, input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "citewise"), args...)
	cmd.Dir = workDir
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = append(os.Environ(),
		"HOME="+workDir,
		fmt.Sprintf("CITEWISE_API_KEY=%s", e.AuthToken),
		fmt.Sprintf("CITEWISE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int             `json:"-"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.send(req, authToken)
}

// Upload posts a document as multipart form data
func (e *E2ETestEnv) Upload(fileName string, content []byte, sourceID, effectiveDate string) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if sourceID != "" {
		_ = mw.WriteField("source_id", sourceID)
	}
	if effectiveDate != "" {
		_ = mw.WriteField("effective_date", effectiveDate)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+"/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req, e.AuthToken)
}

// Raw performs an authenticated GET and returns the undecoded response.
func (e *E2ETestEnv) Raw(path string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.AuthToken)
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

func (e *E2ETestEnv) send(req *http.Request, authToken string) (*APIResponse, error) {
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}

	if resp.StatusCode >= 400 {
		return apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return apiResp, nil
}

// DownloadFile downloads a file from a presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// fakeLLM answers every prompt with a fixed reply and embeds every text along one axis.
type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.answer, nil
}

func (f *fakeLLM) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	v := make([]float32, embedDims)
	v[0] = 1
	return v, nil
}

// LastPrompt returns the most recent completion prompt.
func (f *fakeLLM) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// startServer wires the API the same way the serve command does
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, llm *fakeLLM, port int) (string, func(), *service.EmbeddingService) {
	documents := repository.NewDocumentRepository(pool)
	chunks := repository.NewChunkRepository(pool)
	transcripts := repository.NewTranscriptRepository(pool)
	feedback := repository.NewFeedbackRepository(pool)

	embeddingSvc := service.NewEmbeddingService(llm, documents, chunks)
	retrieval := service.NewRetrievalService(repository.NewSearchRepository(pool), llm, service.SearchModeHybrid)
	historySvc := service.NewHistoryService(transcripts, feedback)
	sessions, err := service.NewSessionManager(historySvc, 64)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	chatSvc := service.NewChatService(nil, retrieval, nil, llm, transcripts, service.ChatConfig{Model: "test-model"})

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: middleware.StaticKeys{
			testToken:  testUserID,
			otherToken: otherUserID,
		},
		ChatHandler:     handlers.NewChatHandler(chatSvc, sessions, true),
		SessionHandler:  handlers.NewSessionHandler(historySvc, sessions),
		FeedbackHandler: handlers.NewFeedbackHandler(service.NewFeedbackService(feedback)),
		DocumentHandler: handlers.NewDocumentHandler(
			service.NewDocumentService(documents, s3Client),
			service.NewIngestService(repository.NewTxRunner(pool), documents, s3Client),
		),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, embeddingSvc
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
