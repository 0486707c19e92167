package ledger

import (
	"sort"
	"strconv"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

const (
	minFetchWindow = 50
	maxFetchWindow = 200
	fetchInflation = 5
)

// SortRecords orders records by createdAt descending. Equal timestamps fall
// back to the numeric payment id descending, then the payment id ascending, so
// a fee row always follows its parent.
func SortRecords(records []models.PaymentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return newerThan(records[i], records[j])
	})
}

func newerThan(a, b models.PaymentRecord) bool {
	ta, okA := ParseTimestamp(a.CreatedAt)
	tb, okB := ParseTimestamp(b.CreatedAt)
	switch {
	case okA && okB:
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
	case a.CreatedAt != b.CreatedAt:
		return a.CreatedAt > b.CreatedAt
	}

	na, errA := strconv.ParseInt(a.PaymentID, 10, 64)
	nb, errB := strconv.ParseInt(b.PaymentID, 10, 64)
	if errA == nil && errB == nil && na != nb {
		return na > nb
	}
	return a.PaymentID < b.PaymentID
}

// Paginate returns the [offset, offset+limit) window of records.
func Paginate(records []models.PaymentRecord, limit, offset int) []models.PaymentRecord {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(records) {
		return []models.PaymentRecord{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	page := make([]models.PaymentRecord, end-offset)
	copy(page, records[offset:end])
	return page
}

// FetchWindow is how many rows to request from the gateway for a page.
// Fee rows are injected and LINK rows dropped after the fetch, so the
// upstream page is inflated and the final page is cut locally.
func FetchWindow(limit, offset int) int {
	n := (limit + offset) * fetchInflation
	if n < minFetchWindow {
		n = minFetchWindow
	}
	if n > maxFetchWindow {
		n = maxFetchWindow
	}
	return n
}
