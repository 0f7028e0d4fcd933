package domain

// EmbeddedChunk is a retrievable unit of context text. It differs from a
// KnowledgeItem only in provenance: chunks come from size-window splitting
// or pre-chunked artifact material rather than semantic extraction.
type EmbeddedChunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"` // "cv", "activities", "knowledge", "artifact:<org>"
	Category  Category  `json:"category"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Searchable reports whether the chunk can participate in similarity ranking.
func (c EmbeddedChunk) Searchable() bool { return len(c.Embedding) > 0 }

// ArtifactChunk is pre-chunked artifact text scoped to an organization,
// passed in by the recording/artifact collaborator.
type ArtifactChunk struct {
	Org     string `json:"org"`
	Content string `json:"content"`
}
