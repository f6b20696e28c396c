package sizefile

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestMetadata() map[string]interface{} {
	return map[string]interface{}{
		"tool_version": "1.2.3",
		"elf_arch":     "arm64",
		"elf_mtime":    1678946171,
	}
}

// makeTestSizeInfo builds a finalized model with n symbols spread over the
// given sections, monotonic addresses within each section and non-monotonic
// sizes.
func makeTestSizeInfo(n int, sections ...string) *SizeInfo {
	si := &SizeInfo{
		Metadata: makeTestMetadata(),
	}
	totals := make(map[string]int64)
	addrs := make(map[string]int64)
	for _, s := range sections {
		addrs[s] = 0x10000
	}
	for i := 0; i < n; i++ {
		section := sections[i%len(sections)]
		size := int64(16 + (i*7919)%300) // non-monotonic
		sym := Symbol{
			SectionName: section,
			Address:     addrs[section],
			Size:        size,
			FullName:    fmt.Sprintf("sym_%d(int, char const*)", i),
			ObjectPath:  fmt.Sprintf("obj/file_%d.o", i%17),
			SourcePath:  fmt.Sprintf("src/file_%d.cc", i%17),
		}
		if i%23 == 0 {
			sym.Flags = FlagGeneratedSource | FlagUnlikely
		}
		addrs[section] += size
		totals[section] += size
		si.RawSymbols = append(si.RawSymbols, sym)
	}
	for _, s := range sections {
		si.SectionSizes = append(si.SectionSizes, SectionSize{Name: s, Size: totals[s]})
	}
	si.Finalize()
	return si
}

func saveToBytes(t *testing.T, si *SizeInfo, opts SaveOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	stats, err := Save(&buf, si, opts)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), stats.CompressedSize)
	return buf.Bytes()
}

// rawDocument decompresses an archive so tests can inspect its lines.
func rawDocument(t *testing.T, data []byte) string {
	t.Helper()
	g, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	doc, err := io.ReadAll(g)
	require.NoError(t, err)
	require.NoError(t, g.Close())
	return string(doc)
}

func TestSaveLoadSingleSymbol(t *testing.T) {
	si := &SizeInfo{
		SectionSizes: []SectionSize{{Name: ".text", Size: 50}},
		RawSymbols: []Symbol{{
			SectionName: ".text",
			Address:     1000,
			Size:        50,
			FullName:    "Foo()",
			ObjectPath:  "a.o",
			SourcePath:  "a.cc",
		}},
		Metadata: map[string]interface{}{"tool": "test"},
	}
	si.Finalize()

	loaded, err := Load(bytes.NewReader(saveToBytes(t, si, SaveOptions{})))
	require.NoError(t, err)

	require.Len(t, loaded.RawSymbols, 1)
	sym := loaded.RawSymbols[0]
	assert.Equal(t, ".text", sym.SectionName)
	assert.EqualValues(t, 1000, sym.Address)
	assert.EqualValues(t, 50, sym.Size)
	assert.Equal(t, "Foo()", sym.FullName)
	assert.Equal(t, "a.o", sym.ObjectPath)
	assert.Equal(t, "a.cc", sym.SourcePath)
	assert.Equal(t, Flags(0), sym.Flags)
	assert.Equal(t, GroupID(0), sym.Group)
	assert.Equal(t, si.SectionSizes, loaded.SectionSizes)
	assert.Equal(t, si.Metadata, loaded.Metadata)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	si := makeTestSizeInfo(1000, ".text", ".rodata", ".data")

	loaded, err := Load(bytes.NewReader(saveToBytes(t, si, SaveOptions{})))
	require.NoError(t, err)

	require.Len(t, loaded.RawSymbols, len(si.RawSymbols))
	// Symbols were built round-robin over sections, so Load regroups them
	// into contiguous per-section runs. Compare per section.
	_, origBySection := groupBySection(si.RawSymbols)
	_, gotBySection := groupBySection(loaded.RawSymbols)
	require.Equal(t, len(origBySection), len(gotBySection))
	for name, origIdxs := range origBySection {
		gotIdxs := gotBySection[name]
		require.Len(t, gotIdxs, len(origIdxs), "section %s", name)
		for k := range origIdxs {
			orig := si.RawSymbols[origIdxs[k]]
			got := loaded.RawSymbols[gotIdxs[k]]
			assert.Equal(t, orig.Address, got.Address)
			assert.Equal(t, orig.Size, got.Size)
			assert.Equal(t, orig.Padding, got.Padding)
			assert.Equal(t, orig.FullName, got.FullName)
			assert.Equal(t, orig.ObjectPath, got.ObjectPath)
			assert.Equal(t, orig.SourcePath, got.SourcePath)
			assert.Equal(t, orig.Flags, got.Flags)
		}
	}
	assert.Equal(t, si.SectionSizes, loaded.SectionSizes)
	assert.Equal(t, si.Metadata, loaded.Metadata)
}

func TestSaveBufferedAndStreamingIdentical(t *testing.T) {
	si := makeTestSizeInfo(500, ".text", ".data")
	streamed := saveToBytes(t, si, SaveOptions{})
	buffered := saveToBytes(t, si, SaveOptions{BufferAll: true})
	assert.Equal(t, streamed, buffered)

	// Saving an unchanged model twice must give identical bytes.
	assert.Equal(t, streamed, saveToBytes(t, si, SaveOptions{}))
}

func TestSaveLoadAliases(t *testing.T) {
	si := &SizeInfo{
		SectionSizes: []SectionSize{{Name: ".data", Size: 8}},
		RawSymbols: []Symbol{
			{SectionName: ".data", Address: 2000, Size: 4, FullName: "WeakA", ObjectPath: "w.o", SourcePath: "w.cc"},
			{SectionName: ".data", Address: 2000, Size: 4, FullName: "WeakB", ObjectPath: "w.o", SourcePath: "w.cc"},
			{SectionName: ".data", Address: 2004, Size: 4, FullName: "After", ObjectPath: "w.o", SourcePath: "w.cc"},
		},
	}
	si.NewAliasGroup(0, 1)
	si.Finalize()

	data := saveToBytes(t, si, SaveOptions{})

	// The first member of the run carries the alias count token, the second
	// is a bare name line.
	doc := rawDocument(t, data)
	assert.Contains(t, doc, "WeakA\ta2\n")
	assert.Contains(t, doc, "WeakB\n")

	loaded, err := Load(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, loaded.RawSymbols, 3)

	a, b, after := loaded.RawSymbols[0], loaded.RawSymbols[1], loaded.RawSymbols[2]
	require.NotEqual(t, GroupID(0), a.Group)
	assert.Equal(t, a.Group, b.Group)
	assert.Equal(t, GroupID(0), after.Group)
	assert.Equal(t, a.Address, b.Address)

	ga := loaded.Aliases(0)
	gb := loaded.Aliases(1)
	require.Len(t, ga, 2)
	assert.Equal(t, []int32{0, 1}, ga)
	// Shared container, not a copy
	assert.True(t, &ga[0] == &gb[0])
	assert.Nil(t, loaded.Aliases(2))
}

func TestSaveLoadOverheadSymbol(t *testing.T) {
	si := &SizeInfo{
		SectionSizes: []SectionSize{{Name: ".text", Size: 100}},
		RawSymbols: []Symbol{
			{SectionName: ".text", Address: 1000, Size: 40, FullName: "Foo()", ObjectPath: "a.o", SourcePath: "a.cc"},
			{SectionName: ".text", Address: 1040, Size: 24, FullName: "** alignment", Flags: FlagOverhead},
			{SectionName: ".text", Address: 1072, Size: 36, FullName: "Bar()", ObjectPath: "a.o", SourcePath: "a.cc"},
		},
	}
	si.Finalize()

	// The overhead symbol keeps its full size, Bar picks up the 8 byte gap
	// after it as padding.
	require.EqualValues(t, 24, si.RawSymbols[1].Size)
	require.EqualValues(t, 0, si.RawSymbols[1].Padding)
	require.EqualValues(t, 8, si.RawSymbols[2].Padding)
	require.EqualValues(t, 44, si.RawSymbols[2].Size)

	loaded, err := Load(bytes.NewReader(saveToBytes(t, si, SaveOptions{})))
	require.NoError(t, err)
	for i := range si.RawSymbols {
		assert.Equal(t, si.RawSymbols[i].Size, loaded.RawSymbols[i].Size, "symbol %d", i)
		assert.Equal(t, si.RawSymbols[i].Padding, loaded.RawSymbols[i].Padding, "symbol %d", i)
		assert.Equal(t, si.RawSymbols[i].Flags, loaded.RawSymbols[i].Flags, "symbol %d", i)
	}
}

func TestLoadVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := io.WriteString(gw, "# Created by something\nBinary Size Archive v999\nmore stuff\n")
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	_, err = Load(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionMismatch), "got: %v", err)
}

func TestLoadTruncated(t *testing.T) {
	si := makeTestSizeInfo(100, ".text", ".data")
	data := saveToBytes(t, si, SaveOptions{})
	for _, n := range []int{1, len(data) / 2, len(data) - 1} {
		_, err := Load(bytes.NewReader(data[:n]))
		assert.Error(t, err, "truncated to %d bytes", n)
	}
}

func TestLoadStructuralViolations(t *testing.T) {
	makeArchive := func(doc string) []byte {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		_, err := io.WriteString(gw, doc)
		require.NoError(t, err)
		require.NoError(t, gw.Close())
		return buf.Bytes()
	}
	const head = "# test\n" + FormatMarker + "\n"
	const meta = "31\nmetadata: {}\nsection_sizes: {}\n\n"

	tests := []struct {
		name string
		doc  string
	}{
		{"no-comment", "nope\n"},
		{"bad-block-length", head + "x\n"},
		{"path-count-mismatch", head + meta + "2\na.o\ta.cc\n"},
		{"malformed-path-line", head + meta + "1\nno-tab-here\n.text\n1\n"},
		{"count-name-mismatch", head + meta + "0\n.text\t.data\n1\n"},
		{"duplicate-section", head + meta + "0\n.text\t.text\n1\t1\n"},
		{"address-count-mismatch", head + meta + "0\n.text\n2\n1000\n"},
		{"size-count-mismatch", head + meta + "0\n.text\n1\n1000\n4 5\n"},
		{"path-index-out-of-range", head + meta + "0\n.text\n1\n1000\n4\n0\nFoo\n"},
		{"alias-run-truncated", head + meta + "1\na.o\ta.cc\n.text\n2\n1000 0\n4 4\n0 0\nFoo\ta3\nBar\n"},
		{"alias-count-inside-run", head + meta + "1\na.o\ta.cc\n.text\n2\n1000 0\n4 4\n0 0\nFoo\ta2\nBar\ta2\n"},
		{"unknown-token-tag", head + meta + "1\na.o\ta.cc\n.text\n1\n1000\n4\n0\nFoo\tz9\n"},
		{"missing-name-lines", head + meta + "1\na.o\ta.cc\n.text\n1\n1000\n4\n0\n"},
		{"huge-block-length", head + "9223372036854775807\n"},
		{"huge-path-count", head + meta + "9223372036854775807\n"},
		{"huge-symbol-count", head + meta + "0\n.text\n9223372036854775807\n"},
		{"overflowing-symbol-counts", head + meta + "0\n.text\t.data\n9223372036854775807\t9223372036854775807\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(makeArchive(tt.doc)))
			assert.Error(t, err)
		})
	}
}

func TestLoadEmptyModel(t *testing.T) {
	si := &SizeInfo{Metadata: map[string]interface{}{}}
	loaded, err := Load(bytes.NewReader(saveToBytes(t, si, SaveOptions{})))
	require.NoError(t, err)
	assert.Empty(t, loaded.RawSymbols)
	assert.Empty(t, loaded.SectionSizes)
}

func TestSectionAccounting(t *testing.T) {
	si := makeTestSizeInfo(999, ".text", ".rodata", ".data")
	doc := rawDocument(t, saveToBytes(t, si, SaveOptions{}))
	lines := strings.Split(doc, "\n")

	// Locate the section header: the two lines after the path table.
	require.Equal(t, FormatMarker, lines[1])
	// line 2 is the block length
	blockLines := strings.Count(rawMetadataBlock(t, doc), "\n")
	pathCountIdx := 2 + blockLines + 2 // skip length line, block, trailing blank line... see rawMetadataBlock
	var nPaths int
	_, err := fmt.Sscanf(lines[pathCountIdx], "%d", &nPaths)
	require.NoError(t, err)
	names := strings.Split(lines[pathCountIdx+nPaths+1], "\t")
	counts := strings.Split(lines[pathCountIdx+nPaths+2], "\t")
	require.Equal(t, len(names), len(counts))
	total := 0
	for _, c := range counts {
		var n int
		_, err := fmt.Sscanf(c, "%d", &n)
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, len(si.RawSymbols), total)
}

// rawMetadataBlock extracts the YAML metadata block from a raw document.
func rawMetadataBlock(t *testing.T, doc string) string {
	t.Helper()
	rest := doc
	for i := 0; i < 2; i++ { // comment + version lines
		_, r, ok := strings.Cut(rest, "\n")
		require.True(t, ok)
		rest = r
	}
	lenLine, rest, ok := strings.Cut(rest, "\n")
	require.True(t, ok)
	var blockLen int
	_, err := fmt.Sscanf(lenLine, "%d", &blockLen)
	require.NoError(t, err)
	require.LessOrEqual(t, blockLen, len(rest))
	return rest[:blockLen]
}

func TestSaveStats(t *testing.T) {
	si := makeTestSizeInfo(200, ".text")
	var buf bytes.Buffer
	stats, err := Save(&buf, si, SaveOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), stats.CompressedSize)
	assert.Greater(t, stats.DocumentSize, stats.CompressedSize)
}
