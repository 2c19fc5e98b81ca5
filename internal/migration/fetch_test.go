package migration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTable serves numbered rows through the page contract and records how
// many page requests it saw.
type fakeTable struct {
	total     int
	pageCalls int
}

func (f *fakeTable) count(ctx context.Context) (int, error) {
	return f.total, nil
}

func (f *fakeTable) page(ctx context.Context, offset, limit int) ([]string, error) {
	f.pageCalls++
	var rows []string
	for i := offset; i < offset+limit && i < f.total; i++ {
		rows = append(rows, fmt.Sprintf("row-%d", i))
	}
	return rows, nil
}

func TestFetchAllPagesThroughWholeTable(t *testing.T) {
	table := &fakeTable{total: 2500}

	rows, err := fetchAll(context.Background(), 1000, table.count, table.page, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2500)
	require.Equal(t, "row-0", rows[0])
	require.Equal(t, "row-2499", rows[2499])
	// 2500 rows at page size 1000: two full pages and one final short page.
	require.Equal(t, 3, table.pageCalls)
}

func TestFetchAllStopsAtExactPageBoundary(t *testing.T) {
	table := &fakeTable{total: 2000}

	rows, err := fetchAll(context.Background(), 1000, table.count, table.page, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2000)
	// The second page is full, so a third, empty page is requested to
	// discover the end of the table.
	require.Equal(t, 3, table.pageCalls)
}

func TestFetchAllEmptyTable(t *testing.T) {
	table := &fakeTable{total: 0}

	rows, err := fetchAll(context.Background(), 1000, table.count, table.page, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestFetchAllReportsProgress(t *testing.T) {
	table := &fakeTable{total: 250}

	var reports [][2]int
	progress := func(current, total int) {
		reports = append(reports, [2]int{current, total})
	}

	_, err := fetchAll(context.Background(), 100, table.count, table.page, progress)
	require.NoError(t, err)
	require.Equal(t, [][2]int{{100, 250}, {200, 250}, {250, 250}}, reports)
}

func TestFetchAllAbortsOnPageError(t *testing.T) {
	pageErr := errors.New("range request failed")
	calls := 0
	page := func(ctx context.Context, offset, limit int) ([]string, error) {
		calls++
		if offset >= 100 {
			return nil, pageErr
		}
		rows := make([]string, limit)
		return rows, nil
	}
	count := func(ctx context.Context) (int, error) { return 300, nil }

	_, err := fetchAll(context.Background(), 100, count, page, nil)
	require.ErrorIs(t, err, pageErr)
	require.Equal(t, 2, calls)
}

func TestFetchAllAbortsOnCountError(t *testing.T) {
	countErr := errors.New("count failed")
	count := func(ctx context.Context) (int, error) { return 0, countErr }
	page := func(ctx context.Context, offset, limit int) ([]string, error) {
		t.Fatal("page should not be called when the count fails")
		return nil, nil
	}

	_, err := fetchAll(context.Background(), 100, count, page, nil)
	require.ErrorIs(t, err, countErr)
}
