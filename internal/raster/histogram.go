package raster

// An Entry is one (tuple, count) pair in a Histogram's insertion-ordered
// table.
type Entry struct {
	Tuple Tuple
	Count int
}

// A Histogram is a chained hash table keyed by tuple equality (the bucket
// itself is selected by a fixed linear combination of the leading color
// planes; within a bucket, entries are disambiguated by exact tuple
// equality). Lookup returns an index into Entries that is stable for the
// life of the Histogram.
type Histogram struct {
	buckets map[uint64][]int
	Entries []Entry
}

// NewHistogram returns an empty Histogram.
func NewHistogram() *Histogram {
	return &Histogram{buckets: make(map[uint64][]int)}
}

// Lookup returns the stable index of t, inserting it with count 0 first if
// it is not already present.
func (h *Histogram) Lookup(t Tuple) int {
	key := hashKey(t)
	for _, idx := range h.buckets[key] {
		if h.Entries[idx].Tuple.Equal(t) {
			return idx
		}
	}
	idx := len(h.Entries)
	h.Entries = append(h.Entries, Entry{Tuple: t.Clone()})
	h.buckets[key] = append(h.buckets[key], idx)
	return idx
}

// Add increments the count for t, inserting it if necessary, and returns
// its stable index.
func (h *Histogram) Add(t Tuple) int {
	idx := h.Lookup(t)
	h.Entries[idx].Count++
	return idx
}

// Len returns the number of distinct tuples recorded.
func (h *Histogram) Len() int { return len(h.Entries) }

// TotalCount returns the sum of all entry counts, which must equal
// width*height of the source image once a histogram has been fully built.
func (h *Histogram) TotalCount() int {
	n := 0
	for _, e := range h.Entries {
		n += e.Count
	}
	return n
}

// Build scans rows (width*height tuples in row-major order) and returns
// their Histogram.
func Build(rows [][]Tuple) *Histogram {
	h := NewHistogram()
	for _, row := range rows {
		for _, t := range row {
			h.Add(t)
		}
	}
	return h
}
