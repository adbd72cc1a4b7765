package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

const parisCorpus = `
[[passages]]
key = "paris"
text = "Paris is the capital of France."

[[relations]]
from = "Paris"
relation = "capital of"
to = "France"
`

const lyonCorpus = `
[[passages]]
key = "lyon"
text = "Lyon is known for its cuisine."

[[facts]]
subject = "Lyon"
predicate = "region"
object = "Auvergne-Rhone-Alpes"
`

func writeCorpus(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func keys(hits []driven.BackendHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Key
	}
	return out
}

func TestLibrary_ServesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.toml")
	writeCorpus(t, path, parisCorpus)

	lib, err := NewLibrary(func() (*Corpus, error) { return LoadCorpus(path) })
	require.NoError(t, err)

	passages, facts, entities := lib.Stats()
	assert.Equal(t, 1, passages)
	assert.Equal(t, 0, facts)
	assert.Equal(t, 2, entities)

	hits, err := lib.Text().Search(context.Background(), "capital of France", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"paris"}, keys(hits))

	writeCorpus(t, path, lyonCorpus)
	require.NoError(t, lib.Reload())

	hits, err = lib.Text().Search(context.Background(), "Lyon cuisine", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"lyon"}, keys(hits))

	hits, err = lib.Facts().Search(context.Background(), "Lyon region", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestLibrary_ReloadFailureKeepsContent(t *testing.T) {
	calls := 0
	lib, err := NewLibrary(func() (*Corpus, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("broken corpus")
		}
		return ParseCorpus([]byte(parisCorpus))
	})
	require.NoError(t, err)

	assert.Error(t, lib.Reload())

	passages, _, _ := lib.Stats()
	assert.Equal(t, 1, passages)
}

func TestNewLibrary_LoadError(t *testing.T) {
	_, err := NewLibrary(func() (*Corpus, error) { return nil, errors.New("no corpus") })
	assert.Error(t, err)
}

func TestLibrary_GraphViewSearchesPaths(t *testing.T) {
	lib, err := NewLibrary(func() (*Corpus, error) { return ParseCorpus([]byte(parisCorpus)) })
	require.NoError(t, err)

	paths, ok := lib.Graph().(driven.PathSearcher)
	require.True(t, ok)

	hits, err := paths.SearchPaths(context.Background(), "Paris and France", 5, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.toml")
	writeCorpus(t, path, parisCorpus)

	lib, err := NewLibrary(func() (*Corpus, error) { return LoadCorpus(path) })
	require.NoError(t, err)

	reloaded := make(chan error, 8)
	w, err := lib.Watch([]string{path}, 20*time.Millisecond, func(err error) { reloaded <- err })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	writeCorpus(t, path, lyonCorpus)

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("corpus was not reloaded")
	}

	assert.Eventually(t, func() bool {
		hits, err := lib.Text().Search(context.Background(), "Lyon cuisine", 5)
		return err == nil && len(hits) == 1 && hits[0].Key == "lyon"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_DocumentsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# Alpha\n\nFirst note."), 0o600))

	chunker := NewChunker(0, 0)
	lib, err := NewLibrary(func() (*Corpus, error) {
		docs, err := LoadDocuments(dir, chunker)
		if err != nil {
			return nil, err
		}
		return &Corpus{Passages: docs}, nil
	})
	require.NoError(t, err)

	reloaded := make(chan error, 8)
	w, err := lib.Watch([]string{dir}, 20*time.Millisecond, func(err error) { reloaded <- err })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("Second note."), 0o600))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("documents were not reloaded")
	}
	assert.Eventually(t, func() bool {
		passages, _, _ := lib.Stats()
		return passages == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLibrary_WatchMissingPath(t *testing.T) {
	lib, err := NewLibrary(func() (*Corpus, error) { return &Corpus{}, nil })
	require.NoError(t, err)

	_, err = lib.Watch([]string{filepath.Join(t.TempDir(), "missing")}, 0, nil)
	assert.Error(t, err)
}

func TestWatcher_CloseTwice(t *testing.T) {
	lib, err := NewLibrary(func() (*Corpus, error) { return &Corpus{}, nil })
	require.NoError(t, err)

	w, err := lib.Watch([]string{t.TempDir()}, 0, nil)
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
