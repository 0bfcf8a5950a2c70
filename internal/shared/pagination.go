package shared

// TotalPages returns the number of pages needed to show total items at
// perPage items per page. Non-positive inputs yield zero.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage > 0 {
		pages++
	}
	return pages
}
