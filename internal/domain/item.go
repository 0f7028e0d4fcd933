package domain

import "strings"

// Category labels a knowledge item for display and non-vector filtering.
type Category string

// Generic categories produced by the structurer.
const (
	CategoryExperience Category = "experience"
	CategoryActivity   Category = "activity"
	CategoryEducation  Category = "education"
	CategoryQA         Category = "qa"
	CategoryOther      Category = "other"
)

// CV-specific categories.
const (
	CategoryResearch          Category = "research"
	CategoryClinical          Category = "clinical"
	CategoryWork              Category = "work"
	CategoryLeadership        Category = "leadership"
	CategoryPublications      Category = "publications"
	CategoryPresentations     Category = "presentations"
	CategoryAwards            Category = "awards"
	CategoryCertifications    Category = "certifications"
	CategorySkills            Category = "skills"
	CategoryPersonalStatement Category = "personal_statement"
)

// Interview Q&A categories used by the prepared-answer extractor.
const (
	CategoryPersonal   Category = "personal"
	CategoryEthics     Category = "ethics"
	CategoryTeamwork   Category = "teamwork"
	CategoryHealthcare Category = "healthcare"
	CategoryTechnical  Category = "technical"
)

var knownCategories = map[Category]struct{}{
	CategoryExperience: {}, CategoryActivity: {}, CategoryEducation: {},
	CategoryQA: {}, CategoryOther: {},
	CategoryResearch: {}, CategoryClinical: {}, CategoryWork: {},
	CategoryLeadership: {}, CategoryPublications: {}, CategoryPresentations: {},
	CategoryAwards: {}, CategoryCertifications: {}, CategorySkills: {},
	CategoryPersonalStatement: {},
	CategoryPersonal:          {}, CategoryEthics: {}, CategoryTeamwork: {},
	CategoryHealthcare: {}, CategoryTechnical: {},
}

// NormalizeCategory coerces an arbitrary string to a known category.
// Unknown values map to CategoryOther so unchecked model output cannot
// introduce new categories.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, " ", "_"))))
	if _, ok := knownCategories[c]; ok {
		return c
	}
	return CategoryOther
}

// KnowledgeItem is an atomic, independently retrievable fact extracted from
// a candidate document or uploaded directly.
type KnowledgeItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	Date      string    `json:"date,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"` // nil = not searchable, still displayable
}

// Searchable reports whether the item can participate in similarity ranking.
func (i KnowledgeItem) Searchable() bool { return len(i.Embedding) > 0 }

// EmbeddingText returns the text the item is vectorized against.
// Q&A items embed question and answer together so similarity is biased
// toward question phrasing while still carrying answer semantics; all
// other items embed a structured concatenation of their fields.
func (i KnowledgeItem) EmbeddingText() string {
	if i.Category == CategoryQA {
		return "Question: " + i.Title + "\nAnswer: " + i.Content
	}
	var b strings.Builder
	if i.Title != "" {
		b.WriteString(i.Title)
		b.WriteString("\n")
	}
	if i.Category != "" {
		b.WriteString("Category: ")
		b.WriteString(string(i.Category))
		b.WriteString("\n")
	}
	b.WriteString(i.Content)
	if len(i.Tags) > 0 {
		b.WriteString("\nSkills: ")
		b.WriteString(strings.Join(i.Tags, ", "))
	}
	return b.String()
}
