package sizefile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// SaveOptions selects the save strategy. The zero value is a good default.
type SaveOptions struct {
	// BufferAll builds the full uncompressed document in memory and feeds
	// the compressor in one pass, instead of streaming the encoder output
	// through the gzip writer. This trades memory for slightly better
	// throughput on large models. The output bytes are identical either way.
	BufferAll bool

	// Level is the gzip compression level. Zero selects gzip.BestSpeed.
	Level int
}

func (o SaveOptions) level() int {
	if o.Level == 0 {
		return gzip.BestSpeed
	}
	return o.Level
}

// SaveStats reports sizes and timing of a Save call.
type SaveStats struct {
	DocumentSize   datasize.ByteSize // uncompressed document size
	CompressedSize datasize.ByteSize
	TCompressed    time.Duration
}

// Save writes info to w as a gzip compressed size archive.
//
// The gzip header carries no file name and a zero modification time, so
// saving an unchanged model always produces identical bytes.
//
// Save never mutates info. Symbols of one section must form contiguous runs
// per alias group and every FullName must be free of tab and newline
// characters; the upstream extraction pipeline guarantees both.
func Save(w io.Writer, info *SizeInfo, opts SaveOptions) (SaveStats, error) {
	var stats SaveStats
	t0 := time.Now()

	cw := &countingWriter{w: w}
	gw, err := gzip.NewWriterLevel(cw, opts.level())
	if err != nil {
		return stats, err
	}

	var docSize int64
	if opts.BufferAll {
		buf := bytes.NewBuffer(make([]byte, 0, datasize.MB))
		if err := encode(buf, info); err != nil {
			return stats, err
		}
		docSize = int64(buf.Len())
		if _, err := gw.Write(buf.Bytes()); err != nil {
			return stats, err
		}
	} else {
		dw := &countingWriter{w: gw}
		bw := bufio.NewWriterSize(dw, 64*1024)
		if err := encode(bw, info); err != nil {
			return stats, err
		}
		if err := bw.Flush(); err != nil {
			return stats, err
		}
		docSize = dw.n
	}

	if err := gw.Close(); err != nil {
		return stats, err
	}
	stats.DocumentSize = datasize.ByteSize(docSize)
	stats.CompressedSize = datasize.ByteSize(cw.n)
	stats.TCompressed = time.Since(t0)
	return stats, nil
}

// SaveFile saves info to a file, replacing it atomically on success.
func SaveFile(fpath string, info *SizeInfo, opts SaveOptions) (SaveStats, error) {
	tmpPath := fpath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return SaveStats{}, err
	}
	stats, err := Save(f, info, opts)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return stats, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return stats, err
	}
	return stats, os.Rename(tmpPath, fpath)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// encode writes the uncompressed archive document.
func encode(w io.Writer, info *SizeInfo) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n", headerComment, FormatMarker); err != nil {
		return err
	}
	if err := encodeMetadataBlock(w, info); err != nil {
		return err
	}

	table, pathIndex := buildPathTable(info.RawSymbols)
	if _, err := fmt.Fprintf(w, "%d\n", len(table)); err != nil {
		return err
	}
	for _, t := range table {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", t.object, t.source); err != nil {
			return err
		}
	}

	sections, bySection := groupBySection(info.RawSymbols)
	if err := writeTabJoined(w, sections); err != nil {
		return err
	}
	counts := make([]string, len(sections))
	for i, name := range sections {
		counts[i] = strconv.Itoa(len(bySection[name]))
	}
	if err := writeTabJoined(w, counts); err != nil {
		return err
	}

	// Numeric columns, one line per section each: delta encoded addresses,
	// absolute sizes, delta encoded path table indices.
	var scratch []byte
	var vals []int64
	column := func(extract func(*Symbol) int64, delta bool) error {
		for _, name := range sections {
			idxs := bySection[name]
			vals = vals[:0]
			for _, i := range idxs {
				vals = append(vals, extract(&info.RawSymbols[i]))
			}
			scratch = scratch[:0]
			if delta {
				scratch = appendDeltaColumn(scratch, vals)
			} else {
				scratch = appendIntColumn(scratch, vals)
			}
			scratch = append(scratch, '\n')
			if _, err := w.Write(scratch); err != nil {
				return err
			}
		}
		return nil
	}
	if err := column(func(s *Symbol) int64 { return s.Address }, true); err != nil {
		return err
	}
	err := column(func(s *Symbol) int64 {
		if s.IsOverhead() {
			// Overhead symbols persist their full size including padding.
			return s.Size
		}
		return s.SizeWithoutPadding()
	}, false)
	if err != nil {
		return err
	}
	err = column(func(s *Symbol) int64 {
		return int64(pathIndex[pathTuple{s.ObjectPath, s.SourcePath}])
	}, true)
	if err != nil {
		return err
	}

	// Name lines. The first member of an alias run carries an explicit
	// alias count token; the remaining members are recognised by position.
	for _, name := range sections {
		remaining := 0
		for _, i := range bySection[name] {
			sym := &info.RawSymbols[i]
			scratch = append(scratch[:0], sym.FullName...)
			if remaining > 0 {
				remaining--
			} else if sym.Group != 0 {
				n := len(info.AliasGroup(sym.Group))
				scratch = append(scratch, '\t', 'a')
				scratch = strconv.AppendInt(scratch, int64(n), 10)
				remaining = n - 1
			}
			if sym.Flags != 0 {
				scratch = append(scratch, '\t', 'f')
				scratch = strconv.AppendUint(scratch, uint64(sym.Flags), 16)
			}
			scratch = append(scratch, '\n')
			if _, err := w.Write(scratch); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeMetadataBlock writes the byte length prefixed YAML block holding the
// opaque metadata mapping and the ordered section sizes.
func encodeMetadataBlock(w io.Writer, info *SizeInfo) error {
	sections := make(yaml.MapSlice, 0, len(info.SectionSizes))
	for _, ss := range info.SectionSizes {
		sections = append(sections, yaml.MapItem{Key: ss.Name, Value: ss.Size})
	}
	doc := yaml.MapSlice{
		{Key: "metadata", Value: info.Metadata},
		{Key: "section_sizes", Value: sections},
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal metadata block")
	}
	if _, err := fmt.Fprintf(w, "%d\n", len(b)); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// groupBySection partitions RawSymbols indices into per-section runs, with
// sections listed in first occurrence order.
func groupBySection(symbols []Symbol) (sections []string, bySection map[string][]int32) {
	bySection = make(map[string][]int32)
	for i := range symbols {
		name := symbols[i].SectionName
		if _, seen := bySection[name]; !seen {
			sections = append(sections, name)
		}
		bySection[name] = append(bySection[name], int32(i))
	}
	return sections, bySection
}

func writeTabJoined(w io.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := io.WriteString(w, "\t"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, f); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}
