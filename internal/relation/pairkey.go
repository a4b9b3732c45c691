package relation

// PairKey returns the canonical key for an unordered participant pair, used
// wherever both directions of a relation share one resource (summary labels,
// label caches).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
