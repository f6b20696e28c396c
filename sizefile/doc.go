/*
Package sizefile implements the persistence codec for binary size snapshots.

A SizeInfo holds hundreds of thousands of per-symbol records. The archive
format keeps them compact by being mostly textual inside a gzip wrapper:

  - a comment line and a literal version marker (exact match required,
    a mismatch is fatal and there is no migration path),
  - a byte length prefixed YAML block with the opaque build metadata and
    the ordered per-section totals,
  - a deduplicated table of distinct (object path, source path) tuples,
    sorted so that the index numbering only depends on the set of tuples,
  - two header lines listing the sections and their symbol counts,
  - per section: delta encoded addresses, absolute sizes and delta encoded
    path table indices, one space joined line each,
  - one name line per symbol, optionally carrying a tagged alias count
    token (a<n>) and a tagged flags token (f<hex>).

Runs of symbols sharing one address (coalesced weak symbols and the like)
form alias groups. Only the first member of a run carries the group size on
its name line; the rest are recognised purely by position. In memory, groups
live in an arena owned by the SizeInfo and symbols refer to them by a stable
GroupID, so every member resolves to the same shared member list.

Padding, template names and display names are not persisted. Load recomputes
them through an explicit Finalize step; only the fields listed in the Symbol
doc as persisted are authoritative before that.
*/
package sizefile
