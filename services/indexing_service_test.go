package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndexerFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanAndIndexDirectory(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 2}}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})
	indexer := NewFileIndexingService(svc)

	dir := t.TempDir()
	writeIndexerFile(t, dir, "notes.txt", "some notes here")
	writeIndexerFile(t, dir, "readme.md", "a readme")
	writeIndexerFile(t, dir, "ignore.exe", "binary")

	indexer.ScanAndIndexDirectory(context.Background(), dir)

	docs, err := memStore.Documents(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{"notes.txt", "readme.md"}, names)
}

func TestScanSkipsUnchangedFiles(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})
	indexer := NewFileIndexingService(svc)

	dir := t.TempDir()
	path := writeIndexerFile(t, dir, "notes.txt", "original content")

	indexer.ScanAndIndexDirectory(context.Background(), dir)
	indexer.ScanAndIndexDirectory(context.Background(), dir)

	size, err := memStore.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	// Changing the content re-ingests the file.
	require.NoError(t, os.WriteFile(path, []byte("changed content"), 0o644))
	indexer.ScanAndIndexDirectory(context.Background(), dir)

	size, err = memStore.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestWatchDirectoryIngestsNewFiles(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})
	indexer := NewFileIndexingService(svc)

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		indexer.WatchDirectory(ctx, dir)
		close(done)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeIndexerFile(t, dir, "dropped.txt", "dropped in while watching")

	require.Eventually(t, func() bool {
		size, err := memStore.Size(context.Background())
		return err == nil && size == 1
	}, 3*time.Second, 25*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not shut down after cancel")
	}
}
