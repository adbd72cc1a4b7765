package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

const corpusTOML = `
[[passages]]
key = "paris"
text = "Paris is the capital of France."

[[relations]]
from = "Paris"
relation = "capital of"
to = "France"
weight = 0.9

[[relations]]
from = "France"
relation = "member of"
to = "European Union"
weight = 0.8
`

func fakeOllama(t *testing.T, generated *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			generated.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":             "llama3.2",
				"response":          "Paris is the capital of France, a member of the European Union.",
				"prompt_eval_count": 80,
				"eval_count":        14,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func testConfig(t *testing.T, ollamaURL, driver string) string {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.toml")
	require.NoError(t, os.WriteFile(corpus, []byte(corpusTOML), 0600))

	return writeConfig(t, fmt.Sprintf(`
[history]
driver = %q
dir = %q

[corpus]
path = %q

[llm]
preference = ["ollama"]

[llm.ollama]
base_url = %q
model = "llama3.2"
`, driver, filepath.Join(dir, "data"), corpus, ollamaURL))
}

func TestNew_EndToEndAutoSearch(t *testing.T) {
	var generated atomic.Int32
	srv := fakeOllama(t, &generated)

	app, err := New(Options{ConfigPath: testConfig(t, srv.URL, "sqlite")})
	require.NoError(t, err)
	defer app.Close()

	resp, err := app.Search.Search(context.Background(), domain.SearchRequest{
		Query: "How is Paris connected to the European Union?",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PolicyAuto, resp.RequestedKind)
	assert.Equal(t, domain.PolicyGraph, resp.Kind)
	require.NotNil(t, resp.Selection)
	assert.GreaterOrEqual(t, resp.Selection.Confidence, 0.6)
	assert.NotEmpty(t, resp.Context.Items)
	assert.Contains(t, resp.Response, "European Union")
	assert.Equal(t, "ollama", resp.Generation.Provider)
	assert.Equal(t, int32(1), generated.Load())
	assert.Equal(t, 94, resp.Metrics.TokensUsed)
	assert.GreaterOrEqual(t, resp.Metrics.TotalTime, resp.Metrics.SearchTime+resp.Metrics.GenerationTime)

	require.NotNil(t, resp.RecordID)
	rec, err := app.History.Get(context.Background(), *resp.RecordID)
	require.NoError(t, err)
	assert.Equal(t, resp.Query, rec.Query)
	assert.Equal(t, domain.PolicyGraph, rec.Kind)
	assert.Equal(t, resp.Response, rec.Response)
}

func TestNew_MemoryHistory(t *testing.T) {
	var generated atomic.Int32
	srv := fakeOllama(t, &generated)

	app, err := New(Options{ConfigPath: testConfig(t, srv.URL, "memory")})
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Search.Search(context.Background(), domain.SearchRequest{
		Query:  "capital of France",
		Policy: domain.PolicyText,
	})
	require.NoError(t, err)

	records, err := app.History.List(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.PolicyText, records[0].Kind)
}

func TestNew_DocumentsAddPassages(t *testing.T) {
	var generated atomic.Int32
	srv := fakeOllama(t, &generated)

	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "lyon.md"),
		[]byte("# Lyon\n\nLyon is known for its **silk** weaving history."), 0600))

	path := writeConfig(t, fmt.Sprintf(`
[history]
driver = "memory"

[search]
chunk_size = 400
chunk_overlap = 50

[corpus]
documents = %q

[llm]
preference = ["ollama"]

[llm.ollama]
base_url = %q
`, docs, srv.URL))

	app, err := New(Options{ConfigPath: path})
	require.NoError(t, err)
	defer app.Close()

	resp, err := app.Search.Search(context.Background(), domain.SearchRequest{
		Query:  "silk weaving in Lyon",
		Policy: domain.PolicyText,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Context.Items)
	assert.Equal(t, "doc:lyon.md#0", resp.Context.Items[0].Key)
}

func TestNew_WatchReloadsCorpus(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.toml")
	require.NoError(t, os.WriteFile(corpus, []byte(corpusTOML), 0600))

	path := writeConfig(t, fmt.Sprintf(`
[history]
driver = "memory"

[corpus]
path = %q
watch = true
`, corpus))

	app, err := New(Options{ConfigPath: path})
	require.NoError(t, err)
	defer app.Close()

	passages, _, _ := app.Library.Stats()
	require.Equal(t, 1, passages)

	require.NoError(t, os.WriteFile(corpus, []byte(corpusTOML+`
[[passages]]
key = "lyon"
text = "Lyon is known for its cuisine."
`), 0600))

	assert.Eventually(t, func() bool {
		passages, _, _ := app.Library.Stats()
		return passages == 2
	}, 5*time.Second, 25*time.Millisecond)
}

func TestNew_ProviderStatus(t *testing.T) {
	var generated atomic.Int32
	srv := fakeOllama(t, &generated)

	app, err := New(Options{ConfigPath: testConfig(t, srv.URL, "memory")})
	require.NoError(t, err)
	defer app.Close()

	statuses := app.ProviderStatus()

	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Healthy())
	assert.Zero(t, generated.Load())
}

func TestNew_NoProviderWarns(t *testing.T) {
	path := writeConfig(t, `
[history]
driver = "memory"

[llm]
preference = ["openai"]
`)

	app, err := New(Options{ConfigPath: path})
	require.NoError(t, err)
	defer app.Close()

	assert.Contains(t, app.Warnings, "no language model provider configured")
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid setting", "[selector]\nthreshold = 2.0\n"},
		{"missing model", "[history]\ndriver = \"memory\"\n[selector]\nmodel_path = \"/nonexistent/router.json\"\n"},
		{"missing corpus", "[history]\ndriver = \"memory\"\n[corpus]\npath = \"/nonexistent/corpus.toml\"\n"},
		{"bad driver", "[history]\ndriver = \"postgres\"\n"},
		{"missing documents", "[history]\ndriver = \"memory\"\n[corpus]\ndocuments = \"/nonexistent/docs\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{ConfigPath: writeConfig(t, tt.body)})
			assert.Error(t, err)
		})
	}
}
