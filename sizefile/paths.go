package sizefile

import "sort"

// pathTuple is one distinct (object path, source path) pair referenced by
// symbols. Archives store one deduplicated table of these and per-symbol
// indices into it, since hundreds of thousands of symbols typically share a
// few thousand distinct pairs.
type pathTuple struct {
	object string
	source string
}

// buildPathTable collects the distinct path tuples of all symbols and
// assigns each a stable index. The table is sorted lexicographically on
// (object, source), so the numbering is a pure function of the set of
// distinct pairs and is independent of symbol order.
func buildPathTable(symbols []Symbol) (table []pathTuple, index map[pathTuple]int) {
	index = make(map[pathTuple]int)
	for i := range symbols {
		t := pathTuple{symbols[i].ObjectPath, symbols[i].SourcePath}
		if _, ok := index[t]; !ok {
			index[t] = 0 // placeholder until sorted
			table = append(table, t)
		}
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].object != table[j].object {
			return table[i].object < table[j].object
		}
		return table[i].source < table[j].source
	})
	for i, t := range table {
		index[t] = i
	}
	return table, index
}
