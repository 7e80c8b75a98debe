package pagination

// DefaultPageSize is the number of launches per page.
const DefaultPageSize = 10

// OffsetFor returns the offset of a 1-based page.
func OffsetFor(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// NextOffset returns the offset of the page after the 1-based cursor.
func NextOffset(cursor, pageSize int) int {
	return OffsetFor(cursor+1, pageSize)
}

// HasMore reports whether a page of got records may be followed by another.
// Only a page shorter than pageSize ends the collection.
func HasMore(got, pageSize int) bool {
	return got >= pageSize
}
