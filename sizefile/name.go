package sizefile

import (
	"fmt"
	"strings"
	"time"
)

// Archive filenames follow <product>__<timestamp>.size.gz so that a plain
// lexicographic listing of a storage bucket sorts each product's archives
// chronologically.

const (
	// Extension is the archive filename extension.
	Extension = "size.gz"

	timeFormat = "20060102-150405.000000000" // but need to s/./-/
	dotIndex   = 15                          // position of the '.'
)

// Timestamp formats ts for use in an archive name.
func Timestamp(ts time.Time) string {
	return strings.Replace(ts.UTC().Format(timeFormat), ".", "-", 1)
}

// ArchiveName builds the canonical archive filename for a product and
// build timestamp.
func ArchiveName(product string, ts time.Time) string {
	return fmt.Sprintf("%s__%s.%s", product, Timestamp(ts), Extension)
}

// NameInfo holds the parsed parts of an archive filename.
type NameInfo struct {
	FullName        string
	Extension       string // "size.gz"
	Product         string
	TimestampString string
	Timestamp       time.Time
}

// ParseArchiveName parses an archive filename produced by ArchiveName.
func ParseArchiveName(name string) (NameInfo, error) {
	var ni, empty NameInfo
	basename, ext, found := strings.Cut(name, ".")
	if !found {
		return empty, fmt.Errorf("invalid name: no dot: %s", name)
	}
	if ext != Extension {
		return empty, fmt.Errorf("unexpected extension: %s", name)
	}
	ni.FullName = name
	ni.Extension = ext
	p := strings.Split(basename, "__")
	if len(p) != 2 {
		return empty, fmt.Errorf("wrong number of name parts: %s", name)
	}
	ni.Product = p[0]
	ni.TimestampString = p[1]
	tss := ni.TimestampString
	if len(tss) != len(timeFormat) || tss[dotIndex] != '-' {
		return empty, fmt.Errorf("invalid timestamp format: %s in %s", tss, name)
	}
	tss = tss[:dotIndex] + "." + tss[dotIndex+1:] // replace second '-' with '.' for parsing
	ts, err := time.Parse(timeFormat, tss)        // returns time in UTC
	if err != nil {
		return empty, fmt.Errorf("timestamp parse error: %s", err)
	}
	ni.Timestamp = ts
	return ni, nil
}
