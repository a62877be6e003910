package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeIngestor records the folder and returns a canned outcome.
type fakeIngestor struct {
	folderID string
	progress *domain.ProcessingProgress
	summary  string
	err      error
}

func (f *fakeIngestor) ProcessFolder(_ context.Context, folderID string) (*domain.ProcessingProgress, string, error) {
	f.folderID = folderID
	return f.progress, f.summary, f.err
}

// fakeChat returns a canned stream or error.
type fakeChat struct {
	message   string
	fragments []string
	err       error
}

func (f *fakeChat) Answer(_ context.Context, message string) (driven.TextStream, error) {
	f.message = message
	if f.err != nil {
		return nil, f.err
	}
	return &sliceStream{fragments: f.fragments}, nil
}

type sliceStream struct {
	fragments []string
	pos       int
}

func (s *sliceStream) Next() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	fragment := s.fragments[s.pos]
	s.pos++
	return fragment, nil
}

// fakeVectorStore backs the stats and delete routes.
type fakeVectorStore struct {
	deleted   []string
	deleteErr error
	stats     driven.VectorStats
}

func (f *fakeVectorStore) Upsert(_ context.Context, _ []domain.EmbeddingVector) error { return nil }

func (f *fakeVectorStore) Query(_ context.Context, _ []float32, _ int, _ map[string]any) ([]domain.RetrievalMatch, error) {
	return nil, nil
}

func (f *fakeVectorStore) DeleteByFileID(_ context.Context, fileID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, fileID)
	return nil
}

func (f *fakeVectorStore) Stats(_ context.Context) (*driven.VectorStats, error) {
	return &f.stats, nil
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestProcessFiles_Success(t *testing.T) {
	ingestor := &fakeIngestor{
		progress: &domain.ProcessingProgress{Status: domain.StatusCompleted, FilesProcessed: 3, TotalFiles: 3},
		summary:  "Successfully processed 3 files",
	}
	server := NewServer(ingestor, &fakeChat{}, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/process-files", `{"folderId":"folder-1"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "folder-1", ingestor.folderID)
	assert.Contains(t, resp.Body.String(), `"success":true`)
	assert.Contains(t, resp.Body.String(), "Successfully processed 3 files")
	assert.Contains(t, resp.Body.String(), `"status":"completed"`)
}

func TestProcessFiles_MissingFolderID(t *testing.T) {
	server := NewServer(&fakeIngestor{}, &fakeChat{}, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/process-files", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doRequest(t, server.Handler(), http.MethodPost, "/process-files", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProcessFiles_FallsBackToDefaultFolder(t *testing.T) {
	ingestor := &fakeIngestor{
		progress: &domain.ProcessingProgress{Status: domain.StatusCompleted},
		summary:  "Successfully processed 0 files",
	}
	server := NewServer(ingestor, &fakeChat{}, &fakeVectorStore{}, WithDefaultFolder("configured-folder"))

	resp := doRequest(t, server.Handler(), http.MethodPost, "/process-files", `{}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "configured-folder", ingestor.folderID)
}

func TestProcessFiles_BodylessRequestUsesDefaultFolder(t *testing.T) {
	ingestor := &fakeIngestor{
		progress: &domain.ProcessingProgress{Status: domain.StatusCompleted},
		summary:  "Successfully processed 0 files",
	}
	server := NewServer(ingestor, &fakeChat{}, &fakeVectorStore{}, WithDefaultFolder("configured-folder"))

	resp := doRequest(t, server.Handler(), http.MethodPost, "/process-files", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "configured-folder", ingestor.folderID)
}

func TestProcessFiles_BodylessRequestWithoutDefault(t *testing.T) {
	server := NewServer(&fakeIngestor{}, &fakeChat{}, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/process-files", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProcessFiles_PipelineFatal(t *testing.T) {
	ingestor := &fakeIngestor{
		progress: &domain.ProcessingProgress{Status: domain.StatusFailed, Error: "index unavailable"},
		err:      fmt.Errorf("%w: store vectors", domain.ErrPipelineFatal),
	}
	server := NewServer(ingestor, &fakeChat{}, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/process-files", `{"folderId":"folder-1"}`)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), `"success":false`)
	assert.Contains(t, resp.Body.String(), `"status":"failed"`)
}

func TestChat_StreamsPlainText(t *testing.T) {
	chat := &fakeChat{fragments: []string{"Hello, ", "world."}}
	server := NewServer(&fakeIngestor{}, chat, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/chat", `{"message":"hi"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, "Hello, world.", resp.Body.String())
	assert.Equal(t, "hi", chat.message)
}

func TestChat_EmptyMessage(t *testing.T) {
	chat := &fakeChat{err: fmt.Errorf("%w: message is required", domain.ErrInvalidInput)}
	server := NewServer(&fakeIngestor{}, chat, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestChat_RateLimitedReturnsBusyText(t *testing.T) {
	chat := &fakeChat{err: fmt.Errorf("%w: all models exhausted", domain.ErrRateLimited)}
	server := NewServer(&fakeIngestor{}, chat, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/chat", `{"message":"hi"}`)

	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, busyMessage, resp.Body.String())
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/plain")
}

func TestChat_ProviderFailure(t *testing.T) {
	chat := &fakeChat{err: errors.New("embedding unavailable")}
	server := NewServer(&fakeIngestor{}, chat, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodPost, "/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestDeleteFile(t *testing.T) {
	store := &fakeVectorStore{}
	server := NewServer(&fakeIngestor{}, &fakeChat{}, store)

	resp := doRequest(t, server.Handler(), http.MethodDelete, "/files/file-42", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"file-42"}, store.deleted)
}

func TestDeleteFile_StoreFailure(t *testing.T) {
	store := &fakeVectorStore{deleteErr: errors.New("index down")}
	server := NewServer(&fakeIngestor{}, &fakeChat{}, store)

	resp := doRequest(t, server.Handler(), http.MethodDelete, "/files/file-42", "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestStats(t *testing.T) {
	store := &fakeVectorStore{stats: driven.VectorStats{TotalVectors: 7, Dimension: 768}}
	server := NewServer(&fakeIngestor{}, &fakeChat{}, store)

	resp := doRequest(t, server.Handler(), http.MethodGet, "/stats", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"totalVectors":7`)
	assert.Contains(t, resp.Body.String(), `"dimension":768`)
}

func TestHealthz(t *testing.T) {
	server := NewServer(&fakeIngestor{}, &fakeChat{}, &fakeVectorStore{})

	resp := doRequest(t, server.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.Code)
}
