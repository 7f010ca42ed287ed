package parser_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/types"
	"docchat/pkg/parser"
)

type parseServerState struct {
	authHeader  string
	instruction string
	resultType  string
	fileName    string
	polls       int
	jobStatus   string
}

func parseTestServer(t *testing.T, state *parseServerState) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/parsing/upload", func(w http.ResponseWriter, r *http.Request) {
		state.authHeader = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		state.instruction = r.FormValue("parsing_instruction")
		state.resultType = r.FormValue("result_type")
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			state.fileName = files[0].Filename
		}
		w.Write([]byte(`{"id": "job-123"}`))
	})
	mux.HandleFunc("/api/parsing/job/job-123", func(w http.ResponseWriter, r *http.Request) {
		state.polls++
		w.Write([]byte(`{"status": "` + state.jobStatus + `"}`))
	})
	mux.HandleFunc("/api/parsing/job/job-123/result/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"pages": [
				{"page": 1, "md": "# Summary\n\nDeposits grew by 12%."},
				{"page": 2, "md": ""},
				{"page": 3, "md": "| Year | Deposits |\n|---|---|\n| 2024 | 120M |"}
			]
		}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writePDF(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "report.pdf", "%PDF-1.4 fake")
}

func TestParseClientRunsFullJobFlow(t *testing.T) {
	state := &parseServerState{jobStatus: "SUCCESS"}
	srv := parseTestServer(t, state)

	client := parser.NewParseClient(srv.URL, "secret-key")
	dir := t.TempDir()
	path := writePDF(t, dir)

	pages, err := client.Parse(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-key", state.authHeader)
	assert.Contains(t, state.instruction, "Markdown")
	assert.Contains(t, state.instruction, "table of contents")
	assert.Equal(t, "markdown", state.resultType)
	assert.Equal(t, "report.pdf", state.fileName)
	assert.Equal(t, 1, state.polls)

	require.Len(t, pages, 3)
	assert.Equal(t, "1", pages[0].Label)
	assert.Contains(t, pages[0].Text, "Deposits grew")
	assert.Equal(t, "3", pages[2].Label)
	assert.Contains(t, pages[2].Text, "| 2024 | 120M |")
}

func TestParseClientFailedJobIsParseError(t *testing.T) {
	state := &parseServerState{jobStatus: "FAILED"}
	srv := parseTestServer(t, state)

	client := parser.NewParseClient(srv.URL, "secret-key")
	path := writePDF(t, t.TempDir())

	_, err := client.Parse(context.Background(), path)
	var perr *types.ParseError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Retryable)
	assert.Equal(t, path, perr.Source)
}

func TestParseClientServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := parser.NewParseClient(srv.URL, "secret-key")
	path := writePDF(t, t.TempDir())

	_, err := client.Parse(context.Background(), path)
	var perr *types.ParseError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Retryable)
}

func TestParseClientRejectionIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client := parser.NewParseClient(srv.URL, "secret-key")
	path := writePDF(t, t.TempDir())

	_, err := client.Parse(context.Background(), path)
	var perr *types.ParseError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Retryable)
}

func TestLoaderParsesPDFThroughDelegate(t *testing.T) {
	state := &parseServerState{jobStatus: "COMPLETED"}
	srv := parseTestServer(t, state)

	loader, err := parser.NewWithConfig(parser.LoaderConfig{
		APIKey:    "secret-key",
		BaseURL:   srv.URL,
		RateLimit: 1000,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	writePDF(t, dir)

	docs, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)

	// The blank page is dropped; the rest keep their page labels.
	require.Len(t, docs, 2)
	labels := []string{docs[0].PageLabel, docs[1].PageLabel}
	assert.ElementsMatch(t, []string{"1", "3"}, labels)
	for _, doc := range docs {
		assert.Equal(t, filepath.Join(dir, "report.pdf"), doc.Source)
		assert.NotEmpty(t, doc.ID)
	}
}

func TestLoaderSkipsPDFWhenDelegateRejectsIt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported file", http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)

	loader, err := parser.NewWithConfig(parser.LoaderConfig{
		APIKey:    "secret-key",
		BaseURL:   srv.URL,
		RateLimit: 1000,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	writePDF(t, dir)
	writeFile(t, dir, "good.txt", "Still readable.")

	docs, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Still readable")
}
