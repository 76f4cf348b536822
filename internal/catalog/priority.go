package catalog

// Priority is a 10-level triage bucket derived from the duplicate
// probability score. P1 is the most confident.
type Priority string

const (
	PriorityP1  Priority = "P1"
	PriorityP2  Priority = "P2"
	PriorityP3  Priority = "P3"
	PriorityP4  Priority = "P4"
	PriorityP5  Priority = "P5"
	PriorityP6  Priority = "P6"
	PriorityP7  Priority = "P7"
	PriorityP8  Priority = "P8"
	PriorityP9  Priority = "P9"
	PriorityP10 Priority = "P10"
)

// Priorities lists all buckets from most to least confident.
var Priorities = []Priority{
	PriorityP1, PriorityP2, PriorityP3, PriorityP4, PriorityP5,
	PriorityP6, PriorityP7, PriorityP8, PriorityP9, PriorityP10,
}

// priorityLadder maps the fixed 10-step score thresholds to buckets.
var priorityLadder = []struct {
	min    float64
	bucket Priority
}{
	{90, PriorityP1},
	{80, PriorityP2},
	{70, PriorityP3},
	{60, PriorityP4},
	{50, PriorityP5},
	{40, PriorityP6},
	{30, PriorityP7},
	{20, PriorityP8},
	{10, PriorityP9},
}

// PriorityFor maps a duplicate probability score to its bucket. It is a
// pure function: identical scores always land in the identical bucket.
func PriorityFor(score float64) Priority {
	for _, step := range priorityLadder {
		if score >= step.min {
			return step.bucket
		}
	}
	return PriorityP10
}
