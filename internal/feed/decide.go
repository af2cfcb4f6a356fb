package feed

// Kind is the outcome of classifying one item.
type Kind int

const (
	Visible Kind = iota
	Hidden
	Annotated
)

func (k Kind) String() string {
	switch k {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Annotated:
		return "annotated"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind Kind
	// Count is the count after the increment, only set when Kind is Annotated.
	Count int
}

// Counters is the part of the counter store a decision reads and writes.
//
// note: fault injection point
type Counters interface {
	Get(id string) int
	Increment(id string) (int, error)
	IsExcluded(id string) bool
}

// Decide classifies id. An excluded id, or one whose count already reached
// threshold-1, is Hidden without being counted. Otherwise the count is
// incremented and the item is Annotated with the new count, unless threshold
// is 0 which disables counting and leaves everything Visible.
//
// A non-nil error means the increment could not be persisted, the decision is
// still valid.
func Decide(counters Counters, id string, threshold int) (Decision, error) {
	if counters.IsExcluded(id) {
		return Decision{Kind: Hidden}, nil
	}
	if threshold > 0 && counters.Get(id) >= threshold-1 {
		return Decision{Kind: Hidden}, nil
	}
	if threshold == 0 {
		return Decision{Kind: Visible}, nil
	}
	count, err := counters.Increment(id)
	return Decision{Kind: Annotated, Count: count}, err
}
