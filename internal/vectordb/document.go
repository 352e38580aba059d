package vectordb

// Document is one indexed chunk.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Metadata records where a chunk came from.
type Metadata struct {
	// Source is the name of the document the chunk was cut from.
	Source string
	// Chunk is the chunk's position within its document.
	Chunk int
	// Seq is the chunk's insertion position in the index. Equal scores are
	// ordered by Seq.
	Seq int
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}
