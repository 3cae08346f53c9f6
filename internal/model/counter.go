package model

import "time"

// DailyCounter is the per-date monotonic sequence source backing token
// allocation. One row per calendar day, owned exclusively by the allocator.
// Current records the last issued sequence number; it only ever grows, even
// when a registration is abandoned after its token was allocated.
type DailyCounter struct {
	SeqDate   string    `db:"seq_date" json:"seq_date"`
	Current   int       `db:"current" json:"current"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
