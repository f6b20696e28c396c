package sizediff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binsize/binsize/sizefile"
)

func makeSnapshot(symbols []sizefile.Symbol, sections ...sizefile.SectionSize) *sizefile.SizeInfo {
	si := &sizefile.SizeInfo{
		SectionSizes: sections,
		RawSymbols:   symbols,
	}
	si.Finalize()
	return si
}

func TestDiff(t *testing.T) {
	before := makeSnapshot(
		[]sizefile.Symbol{
			{SectionName: ".text", Address: 1000, Size: 100, FullName: "Foo()", ObjectPath: "a.o"},
			{SectionName: ".text", Address: 1100, Size: 50, FullName: "Gone()", ObjectPath: "a.o"},
			{SectionName: ".data", Address: 2000, Size: 8, FullName: "kTable", ObjectPath: "b.o"},
		},
		sizefile.SectionSize{Name: ".text", Size: 150},
		sizefile.SectionSize{Name: ".data", Size: 8},
	)
	after := makeSnapshot(
		[]sizefile.Symbol{
			{SectionName: ".text", Address: 1000, Size: 130, FullName: "Foo()", ObjectPath: "a.o"},
			{SectionName: ".data", Address: 2000, Size: 8, FullName: "kTable", ObjectPath: "b.o"},
			{SectionName: ".data", Address: 2008, Size: 16, FullName: "kNew", ObjectPath: "b.o"},
		},
		sizefile.SectionSize{Name: ".text", Size: 130},
		sizefile.SectionSize{Name: ".data", Size: 24},
	)

	res := Diff(before, after)

	require.Len(t, res.Sections, 2)
	assert.Equal(t, SectionDelta{Name: ".text", Before: 150, After: 130}, res.Sections[0])
	assert.Equal(t, SectionDelta{Name: ".data", Before: 8, After: 24}, res.Sections[1])
	assert.EqualValues(t, -4, res.TotalDiff())

	// Unchanged kTable is filtered out; largest absolute change first.
	require.Len(t, res.Symbols, 3)
	assert.Equal(t, "Gone()", res.Symbols[0].FullName)
	assert.EqualValues(t, -50, res.Symbols[0].Diff())
	assert.Equal(t, "Foo()", res.Symbols[1].FullName)
	assert.EqualValues(t, 30, res.Symbols[1].Diff())
	assert.Equal(t, "kNew", res.Symbols[2].FullName)
	assert.EqualValues(t, 16, res.Symbols[2].Diff())
}

func TestDiffRemovedSection(t *testing.T) {
	before := makeSnapshot(nil, sizefile.SectionSize{Name: ".bss", Size: 64})
	after := makeSnapshot(nil)

	res := Diff(before, after)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, SectionDelta{Name: ".bss", Before: 64}, res.Sections[0])
	assert.EqualValues(t, -64, res.TotalDiff())
	assert.Empty(t, res.Symbols)
}

func TestDiffAggregatesDuplicateNames(t *testing.T) {
	before := makeSnapshot([]sizefile.Symbol{
		{SectionName: ".rodata", Address: 10, Size: 4, FullName: "** merge strings", ObjectPath: ""},
		{SectionName: ".rodata", Address: 14, Size: 6, FullName: "** merge strings", ObjectPath: ""},
	}, sizefile.SectionSize{Name: ".rodata", Size: 10})
	after := makeSnapshot([]sizefile.Symbol{
		{SectionName: ".rodata", Address: 10, Size: 12, FullName: "** merge strings", ObjectPath: ""},
	}, sizefile.SectionSize{Name: ".rodata", Size: 12})

	res := Diff(before, after)
	require.Len(t, res.Symbols, 1)
	assert.EqualValues(t, 2, res.Symbols[0].Diff())
}
