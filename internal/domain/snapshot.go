package domain

import (
	"fmt"
	"hash/fnv"
)

// Snapshot is the full serializable embedded state of the knowledge store.
// A snapshot is reusable iff the freshly computed content hash of the
// current source documents equals ContentHash; any mismatch invalidates
// the whole snapshot (no partial reuse by document).
type Snapshot struct {
	QAEmbeddings map[string][]float32 `json:"qa_embeddings"`
	Chunks       []EmbeddedChunk      `json:"chunks"`
	CVSections   []KnowledgeItem      `json:"cv_sections"`
	Activities   []KnowledgeItem      `json:"activities"`
	Items        []KnowledgeItem      `json:"items"`
	ContentHash  string               `json:"content_hash"`
}

// SourceDocs are the raw inputs the knowledge store is built from.
type SourceDocs struct {
	QA             []QAEntry
	CVText         string
	ActivitiesText string
	Artifacts      []ArtifactChunk
}

// Hash fingerprints all source documents. Order is fixed: Q&A entries
// (id, question, answer), CV text, activities text, artifact contents.
// FNV-64a keeps this cheap; collision risk is accepted as low-stakes —
// worst case a stale snapshot is reused and the explicit refresh path
// recovers.
func (d SourceDocs) Hash() string {
	h := fnv.New64a()
	for _, qa := range d.QA {
		h.Write([]byte(qa.ID))
		h.Write([]byte(qa.Question))
		h.Write([]byte(qa.Answer))
	}
	h.Write([]byte(d.CVText))
	h.Write([]byte(d.ActivitiesText))
	for _, a := range d.Artifacts {
		h.Write([]byte(a.Content))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Empty reports whether there is nothing to build a knowledge base from.
func (d SourceDocs) Empty() bool {
	return len(d.QA) == 0 && d.CVText == "" && d.ActivitiesText == "" && len(d.Artifacts) == 0
}

// EmbeddingCounts summarizes searchable material for the UI.
type EmbeddingCounts struct {
	QA         int `json:"qa"`
	Chunks     int `json:"chunks"`
	Activities int `json:"activities"`
}
