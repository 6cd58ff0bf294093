package models

import "time"

// Document describes one uploaded file. The name is a display key, not a
// unique identifier: re-uploading a same-named file adds a second chunk set
// under the same name.
type Document struct {
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Chunk is a contiguous text segment cut from one document. ChunkID is
// assigned sequentially from 0 in extraction order within one ingestion.
type Chunk struct {
	DocumentName string `json:"document_name"`
	ChunkID      int    `json:"chunk_id"`
	Text         string `json:"text"`
}

// Source is the read-only projection of a retrieved chunk returned to the
// caller alongside the answer. Score is squared L2 distance; lower is more
// similar.
type Source struct {
	DocumentName string  `json:"document_name"`
	ChunkID      int     `json:"chunk_id"`
	TextPreview  string  `json:"text_preview"`
	Score        float32 `json:"score"`
}
