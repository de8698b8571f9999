package shares

// foldItems resolves incoming items onto the base state with last-write-wins
// semantics per merge key. An item whose key is already present overwrites the
// existing entry in place, so keys keep the position of their first
// occurrence; new keys append in arrival order. Folding a tail of events onto
// a previously folded prefix yields the same state as folding the whole
// history at once, which is what permits incremental compaction.
func foldItems(base []ShareItem, incoming []ShareItem) []ShareItem {
	if len(incoming) == 0 {
		return base
	}

	merged := make([]ShareItem, len(base), len(base)+len(incoming))
	copy(merged, base)

	indexByKey := make(map[string]int, len(merged))
	for position, item := range merged {
		indexByKey[item.MergeKey()] = position
	}

	for _, item := range incoming {
		key := item.MergeKey()
		if position, exists := indexByKey[key]; exists {
			merged[position] = item
			continue
		}
		indexByKey[key] = len(merged)
		merged = append(merged, item)
	}

	return merged
}
