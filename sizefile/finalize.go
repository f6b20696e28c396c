package sizefile

import "strings"

// Finalize recomputes the derived symbol fields (Padding, TemplateName,
// Name) from the authoritative persisted fields. Load calls it after
// parsing; callers that construct a SizeInfo by hand should call it once
// the symbol list is complete.
//
// Padding is derived from the gap between a symbol's address and the end of
// the preceding symbol in the same section. Overhead symbols already carry
// their padding inside Size and get none attributed. Members of an alias
// run after the first get none either, since they share the first member's
// address.
//
// Finalize is idempotent: it resets any previously derived state first.
func (si *SizeInfo) Finalize() {
	for i := range si.RawSymbols {
		sym := &si.RawSymbols[i]
		if !sym.IsOverhead() {
			sym.Size -= sym.Padding
		}
		sym.Padding = 0
		sym.TemplateName = stripArgumentList(sym.FullName)
		sym.Name = collapseTemplates(sym.TemplateName)
	}

	sections, bySection := groupBySection(si.RawSymbols)
	for _, name := range sections {
		prevEnd := int64(-1)
		var prevGroup GroupID
		for _, i := range bySection[name] {
			sym := &si.RawSymbols[i]
			sameRun := sym.Group != 0 && sym.Group == prevGroup
			if prevEnd >= 0 && sym.Address > 0 && !sameRun && !sym.IsOverhead() {
				if pad := sym.Address - prevEnd; pad > 0 {
					sym.Padding = pad
					sym.Size += pad
				}
			}
			prevEnd = sym.Address + sym.SizeWithoutPadding()
			prevGroup = sym.Group
		}
	}
}

// stripArgumentList removes a trailing balanced parameter list, turning
// "ns::Foo<int>(char const*, int)" into "ns::Foo<int>". Names without a
// trailing list are returned unchanged.
func stripArgumentList(s string) string {
	if !strings.HasSuffix(s, ")") {
		return s
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return s[:i]
			}
		}
	}
	return s // unbalanced, leave as-is
}

// collapseTemplates replaces balanced template argument lists with "<>",
// turning "ns::Foo<std::pair<int, int>>" into "ns::Foo<>".
func collapseTemplates(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			if depth == 0 {
				b.WriteString("<")
			}
			depth++
		case '>':
			if depth > 0 {
				depth--
				if depth == 0 {
					b.WriteString(">")
				}
				continue
			}
			b.WriteByte('>')
		default:
			if depth == 0 {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}
