package sizefile

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Load reads a gzip compressed size archive and reconstructs a fresh
// SizeInfo, the exact inverse of Save for every persisted field. Derived
// fields are recomputed via Finalize before returning.
//
// Any structural violation aborts immediately; Load never returns a
// partially constructed model.
func Load(r io.Reader) (*SizeInfo, error) {
	g, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = g.Close()
	}()

	info, err := decode(bufio.NewReaderSize(g, 64*1024))
	if err != nil {
		return nil, err
	}
	info.Finalize()
	return info, nil
}

// LoadFile loads a size archive from a file and records its path in
// SizePath.
func LoadFile(fpath string) (*SizeInfo, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", fpath)
	}
	info.SizePath = fpath
	return info, nil
}

const (
	// maxMetadataBlockLen bounds the declared metadata block length. The
	// block only holds the opaque scalar metadata and the section totals,
	// so anything larger is a corrupt or hostile archive.
	maxMetadataBlockLen = 16 << 20

	// maxPrealloc clamps allocation size hints taken from archive headers,
	// so a corrupt count cannot trigger a giant up-front allocation. The
	// slices still grow to any size actually backed by input bytes.
	maxPrealloc = 64 * 1024
)

func decode(br *bufio.Reader) (*SizeInfo, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, errors.Wrap(err, "header comment")
	}
	if !strings.HasPrefix(line, "#") {
		return nil, errors.Errorf("expected a comment line, got %q", line)
	}
	line, err = readLine(br)
	if err != nil {
		return nil, errors.Wrap(err, "version marker")
	}
	if line != FormatMarker {
		return nil, errors.Wrapf(ErrVersionMismatch, "got %q, want %q", line, FormatMarker)
	}

	info := new(SizeInfo)
	if err := decodeMetadataBlock(br, info); err != nil {
		return nil, errors.Wrap(err, "metadata block")
	}
	table, err := decodePathTable(br)
	if err != nil {
		return nil, errors.Wrap(err, "path table")
	}

	sections, counts, err := decodeSectionHeader(br)
	if err != nil {
		return nil, errors.Wrap(err, "section header")
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	// Numeric columns in save order, one line per section each.
	addrs, err := decodeColumns(br, counts, parseDeltaColumn)
	if err != nil {
		return nil, errors.Wrap(err, "address column")
	}
	sizes, err := decodeColumns(br, counts, parseIntColumn)
	if err != nil {
		return nil, errors.Wrap(err, "size column")
	}
	pathIdxs, err := decodeColumns(br, counts, parseDeltaColumn)
	if err != nil {
		return nil, errors.Wrap(err, "path index column")
	}

	// Name lines, grouped by section. A per-section countdown recognises
	// the members of an alias run after its first, explicitly counted one.
	if total < 0 || total > maxPrealloc {
		total = maxPrealloc // overflowed or oversized count hint
	}
	info.RawSymbols = make([]Symbol, 0, total)
	for si, section := range sections {
		remaining := 0
		var group []int32
		for i := 0; i < counts[si]; i++ {
			line, err := readLine(br)
			if err != nil {
				return nil, errors.Wrapf(err, "name lines for section %s", section)
			}
			fullName, aliasCount, flags, err := parseNameLine(line)
			if err != nil {
				return nil, errors.Wrapf(err, "section %s symbol %d", section, i)
			}

			pi := pathIdxs[si][i]
			if pi < 0 || pi >= int64(len(table)) {
				return nil, errors.Errorf("section %s symbol %d: path index %d out of range",
					section, i, pi)
			}
			idx := int32(len(info.RawSymbols))
			info.RawSymbols = append(info.RawSymbols, Symbol{
				SectionName: section,
				Address:     addrs[si][i],
				Size:        sizes[si][i],
				FullName:    fullName,
				ObjectPath:  table[pi].object,
				SourcePath:  table[pi].source,
				Flags:       flags,
			})

			if remaining > 0 {
				if aliasCount != 0 {
					return nil, errors.Errorf("section %s symbol %d: alias count inside an alias run",
						section, i)
				}
				group = append(group, idx)
				remaining--
			} else if aliasCount != 0 {
				group = append([]int32(nil), idx)
				remaining = aliasCount - 1
			}
			if remaining == 0 && group != nil {
				info.NewAliasGroup(group...)
				group = nil
			}
		}
		if remaining != 0 {
			return nil, errors.Errorf("section %s: alias run of %d symbols truncated by section end",
				section, remaining)
		}
	}
	return info, nil
}

// parseNameLine splits a symbol name line into the full name and its tagged
// optional tokens: a<decimal> for an alias group count, f<hex> for flags.
func parseNameLine(line string) (fullName string, aliasCount int, flags Flags, err error) {
	parts := strings.Split(line, "\t")
	fullName = parts[0]
	seen := map[byte]bool{}
	for _, tok := range parts[1:] {
		if tok == "" {
			return "", 0, 0, errors.New("empty token on name line")
		}
		tag := tok[0]
		if seen[tag] {
			return "", 0, 0, errors.Errorf("duplicate %q token on name line", tag)
		}
		seen[tag] = true
		switch tag {
		case 'a':
			n, perr := strconv.Atoi(tok[1:])
			if perr != nil || n < 1 {
				return "", 0, 0, errors.Errorf("bad alias count token %q", tok)
			}
			aliasCount = n
		case 'f':
			v, perr := strconv.ParseUint(tok[1:], 16, 32)
			if perr != nil {
				return "", 0, 0, errors.Errorf("bad flags token %q", tok)
			}
			flags = Flags(v)
		default:
			return "", 0, 0, errors.Errorf("unknown token %q on name line", tok)
		}
	}
	return fullName, aliasCount, flags, nil
}

func decodeMetadataBlock(br *bufio.Reader, info *SizeInfo) error {
	line, err := readLine(br)
	if err != nil {
		return err
	}
	blockLen, err := strconv.Atoi(line)
	if err != nil || blockLen < 0 || blockLen > maxMetadataBlockLen {
		return errors.Errorf("bad block length %q", line)
	}
	block := make([]byte, blockLen)
	if _, err := io.ReadFull(br, block); err != nil {
		return errors.Wrap(err, "read block")
	}
	if b, err := br.ReadByte(); err != nil || b != '\n' {
		return errors.New("missing newline after block")
	}

	var doc struct {
		Metadata     map[string]interface{} `yaml:"metadata"`
		SectionSizes yaml.MapSlice          `yaml:"section_sizes"`
	}
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return errors.Wrap(err, "unmarshal block")
	}
	info.Metadata = doc.Metadata
	for _, item := range doc.SectionSizes {
		name, ok := item.Key.(string)
		if !ok {
			return errors.Errorf("bad section name %v", item.Key)
		}
		size, err := toInt64(item.Value)
		if err != nil {
			return errors.Wrapf(err, "section %s size", name)
		}
		info.SectionSizes = append(info.SectionSizes, SectionSize{Name: name, Size: size})
	}
	return nil
}

func decodePathTable(br *bufio.Reader) ([]pathTuple, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(line)
	if err != nil || count < 0 {
		return nil, errors.Errorf("bad tuple count %q", line)
	}
	table := make([]pathTuple, 0, min(count, maxPrealloc))
	for i := 0; i < count; i++ {
		line, err := readLine(br)
		if err != nil {
			return nil, errors.Wrapf(err, "tuple %d of %d", i, count)
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, errors.Errorf("malformed tuple line %q", line)
		}
		table = append(table, pathTuple{object: parts[0], source: parts[1]})
	}
	return table, nil
}

func decodeSectionHeader(br *bufio.Reader) (sections []string, counts []int, err error) {
	namesLine, err := readLine(br)
	if err != nil {
		return nil, nil, err
	}
	countsLine, err := readLine(br)
	if err != nil {
		return nil, nil, err
	}
	if namesLine == "" && countsLine == "" {
		return nil, nil, nil // no symbols at all
	}
	sections = strings.Split(namesLine, "\t")
	countFields := strings.Split(countsLine, "\t")
	if len(countFields) != len(sections) {
		return nil, nil, errors.Errorf("%d section names but %d counts",
			len(sections), len(countFields))
	}
	seen := make(map[string]bool, len(sections))
	counts = make([]int, len(sections))
	for i, f := range countFields {
		if seen[sections[i]] {
			return nil, nil, errors.Errorf("duplicate section %q", sections[i])
		}
		seen[sections[i]] = true
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 {
			return nil, nil, errors.Errorf("bad symbol count %q for section %q", f, sections[i])
		}
		counts[i] = n
	}
	return sections, counts, nil
}

// decodeColumns reads one column line per section and parses it with parse,
// which must yield exactly the declared number of values.
func decodeColumns(br *bufio.Reader, counts []int, parse func(string, int) ([]int64, error)) ([][]int64, error) {
	cols := make([][]int64, len(counts))
	for i, n := range counts {
		line, err := readLine(br)
		if err != nil {
			return nil, errors.Wrapf(err, "section %d", i)
		}
		cols[i], err = parse(line, n)
		if err != nil {
			return nil, errors.Wrapf(err, "section %d", i)
		}
	}
	return cols, nil
}

// readLine reads one newline terminated line, without the newline. A clean
// EOF before any byte is a premature end of input.
func readLine(br *bufio.Reader) (string, error) {
	s, err := br.ReadString('\n')
	if err == io.EOF {
		if s == "" {
			return "", io.ErrUnexpectedEOF
		}
		return s, nil
	}
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, errors.Errorf("expected an integer, got %T", v)
	}
}
