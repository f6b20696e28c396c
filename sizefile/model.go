package sizefile

// SectionSize records the total byte count of one binary section.
// SizeInfo keeps these in section encounter order.
type SectionSize struct {
	Name string
	Size int64
}

// GroupID identifies an alias group within a SizeInfo. The zero value means
// the symbol belongs to no alias group.
type GroupID int32

// Symbol is one named entity (function, variable, string literal, etc)
// attributed to a section of a compiled binary.
//
// Size includes Padding. For overhead symbols (FlagOverhead) the padding
// bytes are folded into Size directly and Padding stays zero.
//
// Padding, TemplateName and Name are derived fields. They are recomputed by
// SizeInfo.Finalize and never persisted.
type Symbol struct {
	SectionName string
	Address     int64
	Size        int64
	FullName    string
	ObjectPath  string
	SourcePath  string
	Flags       Flags
	Group       GroupID

	// Derived by Finalize, never persisted
	Padding      int64
	TemplateName string
	Name         string
}

// SizeWithoutPadding returns the symbol size excluding padding attributed to
// this symbol. For overhead symbols this is the full size, since their
// padding bytes are what they represent.
func (s *Symbol) SizeWithoutPadding() int64 {
	return s.Size - s.Padding
}

// IsOverhead reports whether the symbol is a synthetic padding/alignment
// symbol.
func (s *Symbol) IsOverhead() bool {
	return s.Flags&FlagOverhead != 0
}

// SizeInfo is a complete binary size snapshot: per-section totals, the full
// symbol list and opaque build metadata.
//
// RawSymbols is the canonical symbol order. Symbols of one section always
// form one contiguous run after a Load; a hand-built SizeInfo may interleave
// sections, but that interleaving is not preserved across Save/Load.
type SizeInfo struct {
	SectionSizes []SectionSize          // section encounter order
	RawSymbols   []Symbol
	Metadata     map[string]interface{} // opaque, scalar values
	SizePath     string                 // where this was loaded from, not persisted

	// Alias group arena. Symbols reference a slot via their Group field, so
	// every member of a group observes the same member list.
	aliasGroups [][]int32
}

// NewAliasGroup registers a new alias group containing the given RawSymbols
// indices, in order, and stamps the Group field of each member. All members
// must share one address; this is not verified here.
func (si *SizeInfo) NewAliasGroup(members ...int32) GroupID {
	si.aliasGroups = append(si.aliasGroups, members)
	id := GroupID(len(si.aliasGroups))
	for _, m := range members {
		si.RawSymbols[m].Group = id
	}
	return id
}

// AliasGroup returns the RawSymbols indices of the members of an alias
// group, in original order. It returns nil for the zero GroupID.
// The returned slice is shared, not a copy.
func (si *SizeInfo) AliasGroup(id GroupID) []int32 {
	if id == 0 {
		return nil
	}
	return si.aliasGroups[id-1]
}

// Aliases returns the alias group members of the symbol at index i, or nil
// if the symbol has no alias group.
func (si *SizeInfo) Aliases(i int) []int32 {
	return si.AliasGroup(si.RawSymbols[i].Group)
}

// SectionSize returns the recorded total size of a section, or zero if the
// section is unknown.
func (si *SizeInfo) SectionSize(name string) int64 {
	for _, ss := range si.SectionSizes {
		if ss.Name == name {
			return ss.Size
		}
	}
	return 0
}

// TotalSize returns the sum of all recorded section sizes.
func (si *SizeInfo) TotalSize() (total int64) {
	for _, ss := range si.SectionSizes {
		total += ss.Size
	}
	return total
}
