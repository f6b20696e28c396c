package sizefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizePadding(t *testing.T) {
	si := &SizeInfo{
		RawSymbols: []Symbol{
			{SectionName: ".text", Address: 1000, Size: 40, FullName: "a"},
			{SectionName: ".text", Address: 1048, Size: 16, FullName: "b"}, // 8 byte gap
			{SectionName: ".text", Address: 1064, Size: 8, FullName: "c"},  // no gap
		},
	}
	si.Finalize()

	assert.EqualValues(t, 0, si.RawSymbols[0].Padding)
	assert.EqualValues(t, 8, si.RawSymbols[1].Padding)
	assert.EqualValues(t, 24, si.RawSymbols[1].Size)
	assert.EqualValues(t, 0, si.RawSymbols[2].Padding)

	// Idempotent: a second pass must not double the padding.
	si.Finalize()
	assert.EqualValues(t, 8, si.RawSymbols[1].Padding)
	assert.EqualValues(t, 24, si.RawSymbols[1].Size)
}

func TestFinalizeAliasRunPadding(t *testing.T) {
	si := &SizeInfo{
		RawSymbols: []Symbol{
			{SectionName: ".text", Address: 1000, Size: 16, FullName: "a"},
			{SectionName: ".text", Address: 1020, Size: 8, FullName: "weak1"},
			{SectionName: ".text", Address: 1020, Size: 8, FullName: "weak2"},
		},
	}
	si.NewAliasGroup(1, 2)
	si.Finalize()

	// The gap before the run lands on its first member only.
	assert.EqualValues(t, 4, si.RawSymbols[1].Padding)
	assert.EqualValues(t, 0, si.RawSymbols[2].Padding)
}

func TestFinalizeNames(t *testing.T) {
	tests := []struct {
		fullName     string
		templateName string
		name         string
	}{
		{"Foo()", "Foo", "Foo"},
		{"ns::Bar(int, char const*)", "ns::Bar", "ns::Bar"},
		{"ns::Baz<std::pair<int, int>>(int)", "ns::Baz<std::pair<int, int>>", "ns::Baz<>"},
		{"plain_variable", "plain_variable", "plain_variable"},
		{"** merge strings", "** merge strings", "** merge strings"},
	}
	for _, tt := range tests {
		t.Run(tt.fullName, func(t *testing.T) {
			si := &SizeInfo{RawSymbols: []Symbol{{SectionName: ".text", FullName: tt.fullName}}}
			si.Finalize()
			sym := si.RawSymbols[0]
			assert.Equal(t, tt.templateName, sym.TemplateName)
			assert.Equal(t, tt.name, sym.Name)
		})
	}
}

func TestAliasGroupArena(t *testing.T) {
	si := &SizeInfo{
		RawSymbols: []Symbol{
			{SectionName: ".data", Address: 100, Size: 4},
			{SectionName: ".data", Address: 100, Size: 4},
			{SectionName: ".data", Address: 104, Size: 4},
		},
	}
	id := si.NewAliasGroup(0, 1)
	require.NotEqual(t, GroupID(0), id)

	assert.Equal(t, id, si.RawSymbols[0].Group)
	assert.Equal(t, id, si.RawSymbols[1].Group)
	assert.Equal(t, GroupID(0), si.RawSymbols[2].Group)
	assert.Equal(t, []int32{0, 1}, si.AliasGroup(id))
	assert.Nil(t, si.Aliases(2))
	assert.Nil(t, si.AliasGroup(0))
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "{}", Flags(0).String())
	assert.Equal(t, "{anon}", FlagAnonymous.String())
	assert.Equal(t, "{startup,gen}", (FlagStartup | FlagGeneratedSource).String())
	assert.Equal(t, "{overhead}", FlagOverhead.String())
}
