package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierPolicy_Bounds(t *testing.T) {
	p := TierPolicy{Div: 5}

	tests := []struct {
		name  string
		count int
		max   int
		want  int
	}{
		{"single message", 1, 100, 1},
		{"low traffic", 10, 100, 1},
		{"mid traffic", 50, 100, 3},
		{"near max", 99, 100, 5},
		{"maximum always top tier", 100, 100, 5},
		{"max of one", 1, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Classify(tt.count, tt.max))
		})
	}
}

func TestTierPolicy_Monotonic(t *testing.T) {
	p := TierPolicy{Div: 5}
	max := 37
	prev := 0
	for count := 1; count <= max; count++ {
		tier := p.Classify(count, max)
		assert.GreaterOrEqual(t, tier, 1)
		assert.LessOrEqual(t, tier, 5)
		assert.GreaterOrEqual(t, tier, prev, "tier dropped at count %d", count)
		prev = tier
	}
	assert.Equal(t, 5, p.Classify(max, max))
}

func TestBucketPolicy_Bounds(t *testing.T) {
	p := BucketPolicy{Div: 5}

	assert.Equal(t, 0, p.Classify(1, 100))
	assert.Equal(t, 2, p.Classify(50, 100))
	assert.Equal(t, 4, p.Classify(100, 100), "maximum clamps into the top bucket")
	assert.Equal(t, 4, p.Classify(1, 1))
}

func TestPolicyFor(t *testing.T) {
	p, err := PolicyFor("tier", 5)
	require.NoError(t, err)
	assert.Equal(t, PolicyTier, p.Kind())
	assert.Equal(t, 5, p.Divisions())

	p, err = PolicyFor("bucket", 3)
	require.NoError(t, err)
	assert.Equal(t, PolicyBucket, p.Kind())

	_, err = PolicyFor("linear", 5)
	assert.Error(t, err)

	_, err = PolicyFor("tier", 0)
	assert.Error(t, err)
}
