package usecase

import "caseflow/internal/core/domain"

// IsCollectionComplete reports whether an application's document collection is
// complete: every required document must be completed. With no required
// documents the tracker does not invent completeness; it defers to fallback,
// the last authoritative backend value of the flag.
func IsCollectionComplete(docs []domain.Document, fallback bool) bool {
	required := 0
	for i := range docs {
		if !docs[i].Required {
			continue
		}
		required++
		if !docs[i].Completed {
			return false
		}
	}
	if required == 0 {
		return fallback
	}
	return true
}
