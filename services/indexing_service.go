package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileIndexingService feeds a watched directory through the ingestion
// pipeline: every supported file is ingested on startup and re-ingested when
// written. The index has no per-document delete, so removals are ignored;
// a content hash per path avoids redundant re-ingestion within a process
// lifetime.
type FileIndexingService struct {
	ragService RAGService

	mu     sync.Mutex
	hashes map[string]string
}

// NewFileIndexingService creates an indexing service bound to the pipeline.
func NewFileIndexingService(ragService RAGService) *FileIndexingService {
	return &FileIndexingService{
		ragService: ragService,
		hashes:     make(map[string]string),
	}
}

// ScanAndIndexDirectory ingests every supported file under dirPath once.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string) {
	log.Printf("INDEXER: Starting directory scan for: %s", dirPath)

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		s.indexFile(ctx, path)
		return nil
	})
	if err != nil {
		log.Printf("INDEXER ERROR: Error walking the path %s: %v", dirPath, err)
	}
	log.Println("INDEXER: Directory scan finished.")
}

// WatchDirectory blocks until ctx is cancelled, re-ingesting files as they
// are created or written.
func (s *FileIndexingService) WatchDirectory(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedFile(event.Name) {
					continue
				}
				// Editors often write via create-temp-and-rename, so Create
				// and Write are handled the same.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: File modified/created: %s. Ingesting...", event.Name)
					s.indexFile(ctx, event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

func (s *FileIndexingService) indexFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("INDEXER WARN: Could not read file %s: %v", path, err)
		return
	}

	hash := hashBytes(data)
	s.mu.Lock()
	previous, seen := s.hashes[path]
	s.mu.Unlock()
	if seen && previous == hash {
		return
	}

	if _, err := s.ragService.IngestFile(ctx, filepath.Base(path), data); err != nil {
		log.Printf("INDEXER ERROR: Failed to ingest file %s: %v", path, err)
		return
	}

	s.mu.Lock()
	s.hashes[path] = hash
	s.mu.Unlock()
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf", ".docx":
		return true
	default:
		return false
	}
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
