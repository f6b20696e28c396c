package sizefile

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Numeric columns are stored as one line per section with space separated
// decimal integers. Slowly varying columns (addresses, path table indices)
// store successive deltas against a running accumulator that starts at zero,
// which keeps the textual magnitude small. Non-monotonic columns (sizes)
// store absolute values.

// appendDeltaColumn appends the delta encoding of vals to b, space joined.
func appendDeltaColumn(b []byte, vals []int64) []byte {
	var prev int64
	for i, v := range vals {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendInt(b, v-prev, 10)
		prev = v
	}
	return b
}

// appendIntColumn appends vals to b as absolute values, space joined.
func appendIntColumn(b []byte, vals []int64) []byte {
	for i, v := range vals {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendInt(b, v, 10)
	}
	return b
}

// parseIntColumn parses a column line into exactly n absolute values.
func parseIntColumn(line string, n int) ([]int64, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, errors.Errorf("expected %d values, got %d", n, len(fields))
	}
	vals := make([]int64, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		vals[i] = v
	}
	return vals, nil
}

// parseDeltaColumn parses a delta encoded column line into exactly n
// absolute values by cumulatively summing left to right.
func parseDeltaColumn(line string, n int) ([]int64, error) {
	vals, err := parseIntColumn(line, n)
	if err != nil {
		return nil, err
	}
	var acc int64
	for i, d := range vals {
		acc += d
		vals[i] = acc
	}
	return vals, nil
}
