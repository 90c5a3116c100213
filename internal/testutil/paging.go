package testutil

import "strconv"

// page slices items for a page token produced by an earlier call. Tokens are
// decimal offsets; an empty token is the first page.
func page[T any](items []T, size int, token string) ([]T, string) {
	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			panic("testutil: bad page token " + token)
		}
		start = n
	}
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if size > 0 && start+size < end {
		end = start + size
	}
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[start:end], next
}
