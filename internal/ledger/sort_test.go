package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

func TestSortRecordsNewestFirst(t *testing.T) {
	recs := []models.PaymentRecord{
		record("9", "", "2024-05-01T10:00:00.000Z"),
		record("10", "", "2024-05-01T10:00:00.000Z"),
		record("11", "", "2024-05-02T10:00:00.000Z"),
		record("10-fee", "", "2024-05-01T10:00:00.000Z"),
	}

	SortRecords(recs)

	assert.Equal(t, []string{"11", "10", "10-fee", "9"}, ids(recs))
}

func TestPaginationPartitionsWithoutOverlap(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var recs []models.PaymentRecord
	for i := 0; i < 25; i++ {
		// every third record shares a timestamp with its neighbour
		ts := base.Add(time.Duration(i-i%3) * time.Minute).Format(isoLayout)
		recs = append(recs, record(fmt.Sprintf("%d", i), "", ts))
	}
	SortRecords(recs)

	var seen []string
	for offset := 0; offset < 30; offset += 10 {
		page := Paginate(recs, 10, offset)
		seen = append(seen, ids(page)...)
	}

	require.Len(t, seen, 25)
	assert.Equal(t, ids(recs), seen)
	for i := 1; i < len(recs); i++ {
		assert.False(t, newerThan(recs[i], recs[i-1]), "record %d out of order", i)
	}
}

func TestPaginateBounds(t *testing.T) {
	recs := []models.PaymentRecord{record("a", "", ""), record("b", "", "")}

	assert.Empty(t, Paginate(recs, 10, 5))
	assert.Empty(t, Paginate(recs, 0, 0))
	assert.Len(t, Paginate(recs, 10, -3), 2)
	assert.Equal(t, []string{"b"}, ids(Paginate(recs, 1, 1)))
}

func TestFetchWindow(t *testing.T) {
	assert.Equal(t, 50, FetchWindow(10, 0))
	assert.Equal(t, 100, FetchWindow(10, 10))
	assert.Equal(t, 200, FetchWindow(50, 0))
	assert.Equal(t, 200, FetchWindow(100, 100))
}
