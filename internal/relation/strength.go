package relation

import "fmt"

// Policy kinds accepted by PolicyFor.
const (
	PolicyTier   = "tier"
	PolicyBucket = "bucket"
)

// StrengthPolicy maps a relation's message count, relative to the busiest
// relation of the run, onto a discrete scale. The scale is monotonic in the
// count: a higher count never classifies lower.
type StrengthPolicy interface {
	// Kind identifies the policy for export-format selection.
	Kind() string
	// Divisions returns the number of divisions T of the scale.
	Divisions() int
	// Classify maps messageCount against maxMessageCount (> 0).
	Classify(messageCount, maxMessageCount int) int
}

// TierPolicy yields tiers in [1, T]. The relation holding the run's maximum
// count always lands in tier T, and any positive count lands at tier >= 1.
type TierPolicy struct {
	Div int
}

func (p TierPolicy) Kind() string   { return PolicyTier }
func (p TierPolicy) Divisions() int { return p.Div }

func (p TierPolicy) Classify(messageCount, maxMessageCount int) int {
	normalized := float64(messageCount) / float64(maxMessageCount)
	tier := int(normalized*float64(p.Div)) + 1
	if tier > p.Div {
		tier = p.Div
	}
	return tier
}

// BucketPolicy yields buckets in [0, T-1] and routes each relation's
// recipient into one of T matrix columns per sender instead of styling a
// numeric strength.
type BucketPolicy struct {
	Div int
}

func (p BucketPolicy) Kind() string   { return PolicyBucket }
func (p BucketPolicy) Divisions() int { return p.Div }

func (p BucketPolicy) Classify(messageCount, maxMessageCount int) int {
	bucket := int(float64(messageCount) / float64(maxMessageCount) * float64(p.Div))
	if bucket >= p.Div {
		bucket = p.Div - 1
	}
	if bucket < 0 {
		bucket = 0
	}
	return bucket
}

// PolicyFor builds the configured strength policy.
func PolicyFor(kind string, divisions int) (StrengthPolicy, error) {
	if divisions < 1 {
		return nil, fmt.Errorf("strength divisions must be >= 1, got %d", divisions)
	}
	switch kind {
	case PolicyTier:
		return TierPolicy{Div: divisions}, nil
	case PolicyBucket:
		return BucketPolicy{Div: divisions}, nil
	default:
		return nil, fmt.Errorf("unknown strength policy %q", kind)
	}
}
