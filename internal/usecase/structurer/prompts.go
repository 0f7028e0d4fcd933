package structurer

// Extraction prompts per document kind. All three instruct the model to
// return {"items": [...]} with the fixed item schema; the model is also
// told to auto-detect Q&A-formatted documents, in which case the title is
// the verbatim question and the content the verbatim answer.

const promptSchema = `Return a JSON object of the form {"items": [...]}. Each item has:
- "title": short label (job title, activity name, or the verbatim question for Q&A items)
- "content": the full text body for this item
- "category": one of experience, activity, education, qa, research, clinical, work, leadership, publications, presentations, awards, certifications, skills, personal_statement, personal, ethics, teamwork, healthcare, technical, other
- "date": optional date or date range as written in the document
- "skills": optional list of skill or theme labels

If the document is a list of question-answer pairs, emit one item per pair with category "qa", title set to the EXACT question text and content set to the EXACT answer text, unaltered.`

const systemCV = `You decompose a CV or resume into discrete knowledge items.
Emit one item per role, project, or section. Preserve the document's own wording in content; do not summarize away details.
` + promptSchema

const systemActivities = `You decompose an activities or experiences list into discrete knowledge items.
Emit one item per activity, with hours, organizations, and dates kept in the content.
` + promptSchema

const systemGeneric = `You decompose a document into discrete, independently retrievable knowledge items.
Auto-detect the document shape: a CV or activity list yields one item per role/activity/section; running prose yields one item per coherent topic.
` + promptSchema

func systemPrompt(kind Kind) string {
	switch kind {
	case KindCV:
		return systemCV
	case KindActivities:
		return systemActivities
	default:
		return systemGeneric
	}
}
