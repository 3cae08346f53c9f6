package model

// FeedOp describes what happened to a visit record.
type FeedOp string

const (
	// FeedOpSnapshot carries one visit of the initial full state delivered
	// on subscription.
	FeedOpSnapshot FeedOp = "snapshot"
	FeedOpAdded    FeedOp = "added"
	FeedOpModified FeedOp = "modified"
	FeedOpRemoved  FeedOp = "removed"
)

// VisitEvent is one change feed delivery. Deliveries are at-least-once;
// consumers treat events as idempotent replacements keyed by the visit id.
type VisitEvent struct {
	Op    FeedOp `json:"op"`
	Visit *Visit `json:"visit"`
}
