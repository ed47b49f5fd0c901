// Package guardrail post-processes adapter output against the original
// dataset, enforcing row-identity and append-only invariants independent of
// model behavior. The upstream models are instructed to preserve IDs, never
// insert mid-array, and never delete rows; this pass makes those rules hold
// even when a model ignores them.
package guardrail

import (
	"github.com/numeri/numeri/proxy/pkg/models"
)

// Enforce reconciles candidate rows from a model against the original
// dataset, index-aligned:
//
//   - For each original index, the candidate row at the same index is kept
//     with its identity field forced back to the original value. A missing
//     candidate row (the model deleted it) is restored from the original.
//   - Candidate rows beyond the original length are appended untouched, in
//     their relative order.
//
// The result therefore always satisfies: identity stability for every
// pre-existing row, no silent deletion, and append-only growth.
//
// The index alignment assumes the model preserves row order and count
// closely. A mid-array insertion shifts subsequent rows and is absorbed by
// the index mapping rather than rejected; that is a known correctness
// boundary of this design, not something to be patched by guessing intent.
func Enforce(original, candidate []models.Row) []models.Row {
	guarded := make([]models.Row, 0, max(len(original), len(candidate)))

	for i, originalRow := range original {
		if i < len(candidate) && candidate[i] != nil {
			row := candidate[i]
			if id, ok := originalRow[models.IdentityField]; ok {
				row[models.IdentityField] = id
			}
			guarded = append(guarded, row)
			continue
		}
		// Model dropped this row; restore it unchanged at its position.
		guarded = append(guarded, originalRow)
	}

	if len(candidate) > len(original) {
		guarded = append(guarded, candidate[len(original):]...)
	}

	return guarded
}
