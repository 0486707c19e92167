package ledger

import (
	"strings"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

// StatusClass is the coarse classification every filter works with.
type StatusClass int

const (
	StatusUnknown StatusClass = iota
	StatusSuccessful
	StatusPending
)

func (c StatusClass) String() string {
	switch c {
	case StatusSuccessful:
		return "successful"
	case StatusPending:
		return "pending"
	}
	return "unknown"
}

// ClassifyStatus maps a raw gateway status, in any casing, to its class.
func ClassifyStatus(status string) StatusClass {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch s {
	case "SUCCESSFUL", "SUCCESS", "PAID":
		return StatusSuccessful
	case "INITIATED", "IN_PROGRESS", "PROCESSING":
		return StatusPending
	}
	if strings.Contains(s, "PEND") {
		return StatusPending
	}
	return StatusUnknown
}

// IsSuccessful reports whether the record's status classifies as successful.
func IsSuccessful(r models.PaymentRecord) bool {
	return ClassifyStatus(r.Status) == StatusSuccessful
}

// MatchesFilter applies a wallet listing filter to one record. Unknown
// statuses only pass the "all" filter.
func MatchesFilter(r models.PaymentRecord, filter models.StatusFilter) bool {
	switch filter {
	case models.FilterAll:
		return true
	case models.FilterPending:
		return ClassifyStatus(r.Status) == StatusPending
	default:
		return ClassifyStatus(r.Status) == StatusSuccessful
	}
}

// FilterRecords keeps the records matching filter, preserving order.
func FilterRecords(records []models.PaymentRecord, filter models.StatusFilter) []models.PaymentRecord {
	out := make([]models.PaymentRecord, 0, len(records))
	for _, r := range records {
		if MatchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	return out
}
