package domain

// IngestionResult is the outcome of one pipeline run. Inserted and Errors keep input order.
type IngestionResult struct {
	Kind           EntityKind
	TotalRows      int
	Inserted       []Record
	Errors         []string
	DuplicateCount int
	// ErrorCount counts rows: invalid + duplicate + failed inserts. It differs from
	// len(Errors) because duplicates are reported by a single summary line.
	ErrorCount int
}

// InsertedCount is the number of records persisted by the run.
func (r IngestionResult) InsertedCount() int {
	return len(r.Inserted)
}

// ErrorDetails returns at most limit error messages.
func (r IngestionResult) ErrorDetails(limit int) []string {
	if limit <= 0 || len(r.Errors) <= limit {
		return append([]string{}, r.Errors...)
	}
	return append([]string{}, r.Errors[:limit]...)
}
