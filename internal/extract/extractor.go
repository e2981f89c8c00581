// Package extract turns raw transcript text into candidate claims. Two
// extractors share the contract: a regex extractor needing no external
// services, and an LLM extractor that is context-aware and grounds its output
// against the source text. Extraction never fails past this boundary;
// problems degrade to an empty claim list.
package extract

import (
	"context"

	"github.com/ppiankov/sitrep/internal/model"
)

// Extractor produces candidate claims from a transcript chunk. state is the
// incident's current belief state for context-aware extraction; extractors
// may ignore it. An empty result is a valid outcome, never an error.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string, state *model.Incident) []model.Claim
}
