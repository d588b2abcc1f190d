package document

// MergeOptions controls which incoming leaves may land on the base document
// during a Merge. Both predicates are evaluated per leaf path; map nodes are
// always descended into, mirroring how update compilation walks a record.
type MergeOptions struct {
	// Skip leaves for which this returns true, keeping the base value.
	// A nil func skips nothing.
	Skip func(Path) bool
	// KeepExisting leaves keep the base value when one is present; the
	// incoming value only lands where the base has no value at all.
	KeepExisting func(Path) bool
}

// Merge deep-merges incoming into base and returns the result, leaving both
// inputs untouched. Every qualifying leaf named by incoming overwrites the
// corresponding base position, creating intermediate maps as needed and
// replacing non-map intermediates; positions that incoming does not name
// keep their base value. Null incoming leaves are no-op signals and are
// skipped, matching how update compilation treats them. A subtree that
// contributes no leaf leaves the base untouched at that position.
func Merge(base, incoming Document, opts MergeOptions) Document {
	out := base.Clone()
	if out == nil {
		out = Document{}
	}
	mergeInto(out, incoming, "", opts)
	return out
}

// mergeInto reports whether any leaf landed in dst.
func mergeInto(dst, src Document, prefix Path, opts MergeOptions) bool {
	wrote := false
	for name, v := range src {
		p := prefix.Child(name)
		if child, ok := v.MapValue(); ok {
			target, hadMap := dst[name].MapValue()
			if !hadMap {
				target = Document{}
			}
			if mergeInto(target, child, p, opts) {
				dst[name] = Map(target)
				wrote = true
			}
			continue
		}
		if v.IsNull() {
			continue
		}
		if opts.Skip != nil && opts.Skip(p) {
			continue
		}
		if _, present := dst[name]; present && opts.KeepExisting != nil && opts.KeepExisting(p) {
			continue
		}
		dst[name] = v.Clone()
		wrote = true
	}
	return wrote
}
