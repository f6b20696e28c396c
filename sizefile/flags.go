package sizefile

import "strings"

// Flags is the symbol attribute bitmask.
type Flags uint32

const (
	FlagAnonymous Flags = 1 << iota
	FlagStartup
	FlagUnlikely
	FlagRel
	FlagRelLocal
	FlagGeneratedSource
	FlagClone
	FlagHot
	FlagCoverage
	// FlagOverhead marks a synthetic symbol that represents padding or
	// alignment bytes. Its persisted size includes those bytes.
	FlagOverhead
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagAnonymous, "anon"},
	{FlagStartup, "startup"},
	{FlagUnlikely, "unlikely"},
	{FlagRel, "rel"},
	{FlagRelLocal, "rel.loc"},
	{FlagGeneratedSource, "gen"},
	{FlagClone, "clone"},
	{FlagHot, "hot"},
	{FlagCoverage, "cov"},
	{FlagOverhead, "overhead"},
}

// String returns a compact display form like "{anon,startup}".
func (f Flags) String() string {
	if f == 0 {
		return "{}"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			f &^= fn.flag
		}
	}
	if f != 0 {
		parts = append(parts, "?")
	}
	return "{" + strings.Join(parts, ",") + "}"
}
