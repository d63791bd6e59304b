package catalog

// DedupeBooks collapses rows sharing a (title, isbn) identity within one
// batch, keeping the first occurrence in file order. Cross-batch duplicate
// suppression against persisted records is the reconciler's job, not this
// stage's.
func DedupeBooks(books []Book) []Book {
	seen := make(map[string]struct{}, len(books))
	out := books[:0:0]
	for _, b := range books {
		k := b.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, b)
	}
	return out
}
