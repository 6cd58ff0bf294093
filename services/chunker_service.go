package services

import (
	"fmt"
	"unicode"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Kondrashov16/arkiv/models"
)

// Chunker splits extracted text into segments sized for embedding. For a
// fixed input and configuration the output sequence is always identical,
// which ingestion reproducibility and the tests depend on.
type Chunker interface {
	Split(text string) ([]string, error)
}

// NewChunker builds the configured chunking strategy. size is the maximum
// characters per chunk, overlap the number of trailing characters repeated
// at the start of the next chunk; 0 <= overlap < size is required.
func NewChunker(strategy string, size, overlap int) (Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d (need 0 <= overlap < size)",
			models.ErrInvalidChunkingConfig, size, overlap)
	}
	switch strategy {
	case "", "fixed":
		return &fixedChunker{size: size, overlap: overlap}, nil
	case "recursive":
		return &recursiveChunker{
			splitter: textsplitter.NewRecursiveCharacter(
				textsplitter.WithChunkSize(size),
				textsplitter.WithChunkOverlap(overlap),
			),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", models.ErrInvalidChunkingConfig, strategy)
	}
}

// boundaryLookback is how far before the size cutoff the fixed chunker looks
// for whitespace to avoid splitting mid-word.
const boundaryLookback = 32

// fixedChunker cuts left-to-right with a fixed stride. Each cut after the
// first starts overlap runes before the previous cut, so concatenating chunk
// 0 with every later chunk minus its leading overlap runes reproduces the
// input exactly.
type fixedChunker struct {
	size    int
	overlap int
}

func (c *fixedChunker) Split(text string) ([]string, error) {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}
	if n <= c.size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < n {
		end := start + c.size
		if end >= n {
			chunks = append(chunks, string(runes[start:n]))
			break
		}

		cut := end
		// A cut between two non-space runes lands mid-word; back up to the
		// nearest whitespace inside the lookback window when that keeps the
		// stride moving forward.
		if !unicode.IsSpace(runes[end]) && !unicode.IsSpace(runes[end-1]) {
			for i := end - 1; i > end-boundaryLookback && i > start; i-- {
				if unicode.IsSpace(runes[i]) {
					if i+1-c.overlap > start {
						cut = i + 1
					}
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:cut]))
		start = cut - c.overlap
	}
	return chunks, nil
}

// recursiveChunker delegates to langchaingo's recursive character splitter.
// It honours the same size/overlap targets but picks boundaries along
// paragraph and sentence separators, so the fixed-stride chunk count formula
// does not apply to it.
type recursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func (c *recursiveChunker) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split failed: %w", err)
	}
	return chunks, nil
}
