package monetdb

// foldByKey collapses runs of rows sharing a group key into one value each,
// in a single pass. rows must already be ordered so that same-key rows are
// contiguous; the catalog queries guarantee this with ORDER BY. open seeds a
// group from its first row and add appends the row's repeating fields.
func foldByKey[R, G any](rows []R, key func(R) string, open func(R) G, add func(*G, R)) []G {
	var (
		out     []G
		cur     G
		last    string
		hasLast bool
	)
	for _, r := range rows {
		k := key(r)
		if hasLast && last != k {
			out = append(out, cur)
		}
		if !hasLast || last != k {
			cur = open(r)
		}
		last, hasLast = k, true
		add(&cur, r)
	}
	if hasLast {
		out = append(out, cur)
	}
	return out
}
