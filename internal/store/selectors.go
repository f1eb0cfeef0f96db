package store

import "trafficshield/internal/models"

// Selectors are pure derived views over a fetched page. None of them
// mutate state; all operate on the snapshot copies State returns.

// CountBy groups the page's items by key and counts each group.
func CountBy[T any](page *models.Page[T], key func(T) string) map[string]int {
	counts := make(map[string]int)
	if page == nil {
		return counts
	}
	for _, item := range page.Items {
		counts[key(item)]++
	}
	return counts
}

// SumBy totals value over the page's items.
func SumBy[T any](page *models.Page[T], value func(T) float64) float64 {
	if page == nil {
		return 0
	}
	var sum float64
	for _, item := range page.Items {
		sum += value(item)
	}
	return sum
}

// Pick returns the items satisfying pred, preserving server order.
func Pick[T any](page *models.Page[T], pred func(T) bool) []T {
	if page == nil {
		return nil
	}
	var out []T
	for _, item := range page.Items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}
