package domain

import "time"

// EffectiveDateLayout is the yyyy-mm-dd form effective dates are stored and shown in.
const EffectiveDateLayout = "2006-01-02"

// RetrievedChunk is one search hit. Slices of chunks are ordered by relevance,
// index 0 being the most relevant.
type RetrievedChunk struct {
	Text          string     `json:"chunk"`
	SourceID      string     `json:"relative_path"`
	EffectiveDate *time.Time `json:"eff_code_final_date,omitempty"`
	ChunkIndex    int        `json:"chunk_order"`
	Score         float32    `json:"score,omitempty"`
}

// EffectiveDateString formats the effective date, or returns "" when it is unknown.
func (c RetrievedChunk) EffectiveDateString() string {
	if c.EffectiveDate == nil || c.EffectiveDate.IsZero() {
		return ""
	}
	return c.EffectiveDate.Format(EffectiveDateLayout)
}

// DateRange restricts retrieval to chunks whose effective date lies within
// [From, To]. Nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// IsZero reports whether the range applies no filtering.
func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// Validate checks the bounds are ordered.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return ErrInvalidDateRange
	}
	return nil
}

// ParseDateRange builds a DateRange from optional yyyy-mm-dd strings.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if from != "" {
		t, err := time.Parse(EffectiveDateLayout, from)
		if err != nil {
			return r, NewDomainErrorWithCause(ErrCodeValidation, "invalid date_from", err)
		}
		r.From = &t
	}
	if to != "" {
		t, err := time.Parse(EffectiveDateLayout, to)
		if err != nil {
			return r, NewDomainErrorWithCause(ErrCodeValidation, "invalid date_to", err)
		}
		r.To = &t
	}
	return r, r.Validate()
}
