package domain

// RecordError describes a failure scoped to a single record.
type RecordError struct {
	CA      string `json:"ca"`
	Message string `json:"error"`
}

// DispositionSummary aggregates the outcome of applying classifications.
type DispositionSummary struct {
	Processed int           `json:"processed"`
	Kept      int           `json:"kept"`
	Deleted   int           `json:"deleted"`
	Skipped   int           `json:"skipped"`
	Errors    []RecordError `json:"errors,omitempty"`
}

// Merge folds another summary into s.
func (s *DispositionSummary) Merge(o DispositionSummary) {
	s.Processed += o.Processed
	s.Kept += o.Kept
	s.Deleted += o.Deleted
	s.Skipped += o.Skipped
	s.Errors = append(s.Errors, o.Errors...)
}
