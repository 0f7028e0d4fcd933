package domain

// QAEntry is a fixed, user-curated prepared answer. The answer text is
// verbatim and never altered by generation.
type QAEntry struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// EmbeddingText returns the text a Q&A entry is vectorized against.
// Entries match on question phrasing only, so only the question embeds.
func (q QAEntry) EmbeddingText() string { return q.Question }
