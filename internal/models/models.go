package models

// Document is one normalized source document produced by the parser.
// Content is markdown-like text with extracted tables preserved as
// markdown table blocks.
type Document struct {
	ID        string
	Source    string
	PageLabel string
	Content   string
	Metadata  map[string]any
}

// Chunk is a contiguous retrieval unit cut from a Document. It inherits
// the document's page label and keeps its position within the document.
type Chunk struct {
	DocumentID string
	Source     string
	PageLabel  string
	Text       string
	Index      int
}

// IndexRecord is the persisted tuple stored in the vector index:
// chunk text, metadata and the embedding vector. ID is deterministic,
// derived from the chunk content, so re-ingestion upserts in place.
type IndexRecord struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// RetrievalResult is one retrieved chunk with its similarity score.
// Produced per query, never persisted.
type RetrievalResult struct {
	Chunk Chunk
	Score float32
}

// Citation links an answer back to a retrieved passage. Label follows
// the "Page <page_label>" convention used by the chat side panel.
type Citation struct {
	Label     string
	PageLabel string
	Text      string
}

// Answer is the final output of one query: the response text plus the
// citations backing it. NoContext marks the "nothing relevant found"
// outcome, which is valid and carries zero citations.
type Answer struct {
	Text      string
	Citations []Citation
	NoContext bool
}

// Turn is one completed exchange in a session's history.
type Turn struct {
	Utterance string
	Condensed string
	Answer    Answer
}
