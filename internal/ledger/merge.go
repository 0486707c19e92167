package ledger

import (
	"strings"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

func priority(source models.RecordSource) int {
	switch source {
	case models.SourceWebhook:
		return 3
	case models.SourceReconcile:
		return 2
	case models.SourceInit:
		return 1
	}
	return 0
}

// Supersedes reports whether candidate should replace existing when both
// describe the same payment id: higher source priority wins, then the
// lexicographically greater createdAt, then updatedAt. On a full tie the
// candidate wins, so the last delivery of a source is the one kept.
func Supersedes(candidate, existing models.PaymentRecord) bool {
	pc, pe := priority(candidate.Source), priority(existing.Source)
	if pc != pe {
		return pc > pe
	}
	if candidate.CreatedAt != existing.CreatedAt {
		return candidate.CreatedAt > existing.CreatedAt
	}
	return candidate.UpdatedAt >= existing.UpdatedAt
}

// IsPairedLink reports whether r is a LINK view of a payment that is already
// represented by its paired record.
func IsPairedLink(r models.PaymentRecord) bool {
	return strings.EqualFold(r.PaymentType, models.PaymentTypeLink) && r.AssociatedPaymentID != ""
}

// Merge collapses records from the init, webhook and reconcile sources into
// one survivor per payment id, drops paired LINK rows and returns the result
// newest first. Among fully tied records the later one in the input wins.
func Merge(records []models.PaymentRecord) []models.PaymentRecord {
	byID := make(map[string]int, len(records))
	merged := make([]models.PaymentRecord, 0, len(records))
	for _, r := range records {
		i, seen := byID[r.PaymentID]
		if !seen {
			byID[r.PaymentID] = len(merged)
			merged = append(merged, r)
			continue
		}
		if Supersedes(r, merged[i]) {
			merged[i] = r
		}
	}

	out := merged[:0]
	for _, r := range merged {
		if IsPairedLink(r) {
			continue
		}
		out = append(out, r)
	}
	SortRecords(out)
	return out
}
