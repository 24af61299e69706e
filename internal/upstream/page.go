package upstream

import (
	"context"
	"time"
)

// Page is one slice of a cursor-paginated query result.
type Page[T any] struct {
	Nodes       []T
	EndCursor   string
	HasNextPage bool
}

// FetchFunc produces the page following the given cursor; an empty cursor
// requests the first page.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// EachPage walks a cursor-paginated query to completion, invoking fn once
// per page and sleeping delay between successive fetches so upstream rate
// limits are respected. An error from fetch or fn stops the walk.
func EachPage[T any](ctx context.Context, fetch FetchFunc[T], delay time.Duration, fn func(items []T) error) error {
	cursor := ""
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if err := fn(page.Nodes); err != nil {
			return err
		}
		if !page.HasNextPage {
			return nil
		}
		cursor = page.EndCursor
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

// Collect drains a paginated query into a single slice.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], delay time.Duration) ([]T, error) {
	var all []T
	err := EachPage(ctx, fetch, delay, func(items []T) error {
		all = append(all, items...)
		return nil
	})
	return all, err
}
