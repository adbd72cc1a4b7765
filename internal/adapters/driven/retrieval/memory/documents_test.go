package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Split(t *testing.T) {
	c := NewChunker(10, 2)

	chunks := c.Split("abcdefghijklmnopqrst")

	require.Len(t, chunks, 3)
	assert.Equal(t, "abcdefghij", chunks[0])
	assert.Equal(t, "ijklmnopqr", chunks[1])
	assert.Equal(t, "qrst", chunks[2])
}

func TestChunker_Split_ShortAndEmpty(t *testing.T) {
	c := NewChunker(100, 10)

	assert.Equal(t, []string{"short"}, c.Split("  short  "))
	assert.Nil(t, c.Split("   "))
}

func TestChunker_Split_Runes(t *testing.T) {
	c := NewChunker(3, 0)

	assert.Equal(t, []string{"żół", "ć"}, c.Split("żółć"))
}

func TestNewChunker_Defaults(t *testing.T) {
	assert.Equal(t, Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}, NewChunker(0, -1))
	assert.Equal(t, Chunker{size: 8, overlap: 2}, NewChunker(8, 8))
}

func TestStripMarkdown(t *testing.T) {
	in := "# Paris\n\nSee [the city](https://paris.fr) and **bold** text.\n\n```go\ncode\n```\n\n- item one\n1. first\n> quoted\n\n---\n"

	out := stripMarkdown(in)

	assert.Contains(t, out, "Paris")
	assert.Contains(t, out, "See the city and bold text.")
	assert.Contains(t, out, "item one")
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "quoted")
	assert.NotContains(t, out, "code")
	assert.NotContains(t, out, "https://")
	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "---")
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cities"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cities", "paris.md"),
		[]byte("# Paris\n\nParis is the **capital** of France."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("Berlin is the capital of Germany.\r\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD.txt"), []byte("ref"), 0o600))

	passages, err := LoadDocuments(dir, NewChunker(1000, 200))

	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "doc:cities/paris.md#0", passages[0].Key)
	assert.Equal(t, "Paris\n\nParis is the capital of France.", passages[0].Text)
	assert.Equal(t, "doc:notes.txt#0", passages[1].Key)

	text := NewTextBackend(passages)
	hits, err := text.Search(context.Background(), "capital of France", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.True(t, strings.HasPrefix(hits[0].Key, "doc:cities/paris.md"))
}

func TestLoadDocuments_MissingDir(t *testing.T) {
	_, err := LoadDocuments(filepath.Join(t.TempDir(), "missing"), NewChunker(0, 0))

	assert.Error(t, err)
}
