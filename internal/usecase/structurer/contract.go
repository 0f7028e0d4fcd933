package structurer

import "context"

// Extractor issues one structured-generation call per document and
// returns the raw model output.
type Extractor interface {
	Extract(ctx context.Context, system, document string) (string, error)
}
