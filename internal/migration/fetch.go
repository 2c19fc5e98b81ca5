package migration

import "context"

// ProgressFunc reports running totals to the caller. total is 0 when the
// source could not provide an exact count; it is informational only.
type ProgressFunc func(current, total int)

// fetchAll reads an entire legacy table page by page in stable order,
// accumulating every page in memory. A count-only query runs first so progress
// can be reported against a known total. The progress callback fires after
// every page. Fetching stops when a page comes back short or empty. A page
// error aborts the whole fetch: silently losing rows is worse than failing.
func fetchAll[T any](
	ctx context.Context,
	pageSize int,
	count func(context.Context) (int, error),
	page func(ctx context.Context, offset, limit int) ([]T, error),
	progress ProgressFunc,
) ([]T, error) {
	total, err := count(ctx)
	if err != nil {
		return nil, err
	}

	var all []T
	for offset := 0; ; offset += pageSize {
		rows, err := page(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		all = append(all, rows...)
		if progress != nil {
			progress(len(all), total)
		}
		if len(rows) < pageSize {
			break
		}
	}
	return all, nil
}
