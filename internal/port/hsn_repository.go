package port

import "context"

// HSNEntry is one row of the HSN/SAC master: a code and a GST rate valid for it.
// A code may carry several rows when the rate depends on a condition.
type HSNEntry struct {
	Code          string  `db:"code"`
	Description   string  `db:"description"`
	GSTRate       float64 `db:"gst_rate"`
	ConditionDesc string  `db:"condition_desc"`
}

// HSNRepository reads and seeds the HSN master table.
type HSNRepository interface {
	LoadAll(ctx context.Context) ([]HSNEntry, error)
	Upsert(ctx context.Context, entries []HSNEntry) (int, error)
}
