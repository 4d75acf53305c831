package search

// Fusion combines the lexical and semantic id streams by ordered
// deduplicating union: every lexical id in order, then every unseen semantic
// id in order. Relevance fusion beyond that is deliberately out of scope;
// each stream is already capped, so the union holds at most twice the cap.
type Fusion struct{}

// NewFusion creates a Fusion.
func NewFusion() Fusion {
	return Fusion{}
}

// Fuse merges the two streams. Negative ids are index sentinels for empty
// slots and are discarded.
func (f Fusion) Fuse(lexical, semantic []int64) []int64 {
	seen := make(map[int64]struct{}, len(lexical)+len(semantic))
	fused := make([]int64, 0, len(lexical)+len(semantic))

	emit := func(ids []int64) {
		for _, id := range ids {
			if id < 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			fused = append(fused, id)
		}
	}

	emit(lexical)
	emit(semantic)
	return fused
}
