// Package sizediff compares two size snapshots and reports growth per
// section and per symbol. It only consumes the public sizefile model, never
// the archive bytes.
package sizediff

import (
	"sort"

	"github.com/samber/lo"

	"github.com/binsize/binsize/sizefile"
)

// SymbolDelta is the size change of one symbol between two snapshots.
// Symbols are matched on (section, full name, object path); several raw
// symbols with the same key (e.g. string literals) are aggregated.
type SymbolDelta struct {
	SectionName string
	FullName    string
	ObjectPath  string
	Before      int64 // 0 when added
	After       int64 // 0 when removed
}

// Diff returns the size change, negative for shrinkage.
func (d SymbolDelta) Diff() int64 {
	return d.After - d.Before
}

// SectionDelta is the total size change of one section.
type SectionDelta struct {
	Name   string
	Before int64
	After  int64
}

func (d SectionDelta) Diff() int64 {
	return d.After - d.Before
}

// Result holds a full comparison of two snapshots.
type Result struct {
	Sections []SectionDelta // section encounter order of 'after', removed ones last
	Symbols  []SymbolDelta  // changed symbols only, largest absolute change first
}

// TotalDiff returns the net size change over all sections.
func (r *Result) TotalDiff() (total int64) {
	for _, s := range r.Sections {
		total += s.Diff()
	}
	return total
}

type symbolKey struct {
	section  string
	fullName string
	object   string
}

// Diff compares two snapshots.
func Diff(before, after *sizefile.SizeInfo) *Result {
	res := &Result{}

	// Section totals, keeping the encounter order of 'after' and appending
	// sections that only the old snapshot had.
	seen := map[string]bool{}
	for _, ss := range after.SectionSizes {
		seen[ss.Name] = true
		res.Sections = append(res.Sections, SectionDelta{
			Name:   ss.Name,
			Before: before.SectionSize(ss.Name),
			After:  ss.Size,
		})
	}
	for _, ss := range before.SectionSizes {
		if !seen[ss.Name] {
			res.Sections = append(res.Sections, SectionDelta{
				Name:   ss.Name,
				Before: ss.Size,
			})
		}
	}

	beforeSizes := aggregate(before)
	afterSizes := aggregate(after)
	keys := lo.Uniq(append(lo.Keys(beforeSizes), lo.Keys(afterSizes)...))
	deltas := lo.Map(keys, func(k symbolKey, _ int) SymbolDelta {
		return SymbolDelta{
			SectionName: k.section,
			FullName:    k.fullName,
			ObjectPath:  k.object,
			Before:      beforeSizes[k],
			After:       afterSizes[k],
		}
	})
	res.Symbols = lo.Filter(deltas, func(d SymbolDelta, _ int) bool {
		return d.Diff() != 0
	})
	sort.Slice(res.Symbols, func(i, j int) bool {
		di, dj := abs(res.Symbols[i].Diff()), abs(res.Symbols[j].Diff())
		if di != dj {
			return di > dj
		}
		a, b := res.Symbols[i], res.Symbols[j]
		if a.SectionName != b.SectionName {
			return a.SectionName < b.SectionName
		}
		if a.FullName != b.FullName {
			return a.FullName < b.FullName
		}
		return a.ObjectPath < b.ObjectPath
	})
	return res
}

// aggregate sums symbol sizes by match key. Alias group members each count
// their own attributed size.
func aggregate(si *sizefile.SizeInfo) map[symbolKey]int64 {
	sizes := make(map[symbolKey]int64, len(si.RawSymbols))
	for i := range si.RawSymbols {
		sym := &si.RawSymbols[i]
		k := symbolKey{sym.SectionName, sym.FullName, sym.ObjectPath}
		sizes[k] += sym.Size
	}
	return sizes
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
