package expr

import "github.com/asayed18/tynamo/document"

type includeMode uint8

const (
	modeAllExcept includeMode = iota
	modeOnlyPaths
)

// Policy selects which leaves of a record an update writes. Excluded and
// insert-only paths stand for themselves and everything beneath them, so
// excluding "data" silences the whole data subtree. OnlyPaths inclusion is
// the opposite: it names leaf paths exactly, ancestors never qualify a
// deeper leaf.
type Policy struct {
	mode       includeMode
	include    pathSet
	exclude    pathSet
	insertOnly pathSet
}

// All includes every leaf. Equivalent to AllExcept with no paths.
func All() Policy {
	return Policy{mode: modeAllExcept}
}

// AllExcept includes every leaf not covered by the given paths.
func AllExcept(paths ...document.Path) Policy {
	return Policy{mode: modeAllExcept, include: newPathSet(paths)}
}

// OnlyPaths includes exactly the named leaf paths and nothing else.
func OnlyPaths(paths ...document.Path) Policy {
	return Policy{mode: modeOnlyPaths, include: newPathSet(paths)}
}

// Excluding returns a copy of the policy that additionally skips the given
// paths. Exclusions win over inclusions in either mode.
func (p Policy) Excluding(paths ...document.Path) Policy {
	p.exclude = p.exclude.with(paths)
	return p
}

// InsertOnly returns a copy of the policy whose assignments for the given
// paths preserve an existing value and only initialize absent ones.
func (p Policy) InsertOnly(paths ...document.Path) Policy {
	p.insertOnly = p.insertOnly.with(paths)
	return p
}

// Allows reports whether an assignment may be emitted for the leaf path.
func (p Policy) Allows(leaf document.Path) bool {
	if p.exclude.covers(leaf) {
		return false
	}
	switch p.mode {
	case modeOnlyPaths:
		return p.include.contains(leaf)
	default:
		return !p.include.covers(leaf)
	}
}

// IsInsertOnly reports whether the leaf keeps an already-present value.
func (p Policy) IsInsertOnly(leaf document.Path) bool {
	return p.insertOnly.covers(leaf)
}

type pathSet map[document.Path]struct{}

func newPathSet(paths []document.Path) pathSet {
	if len(paths) == 0 {
		return nil
	}
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s pathSet) with(paths []document.Path) pathSet {
	out := make(pathSet, len(s)+len(paths))
	for p := range s {
		out[p] = struct{}{}
	}
	for _, p := range paths {
		out[p] = struct{}{}
	}
	return out
}

// contains reports exact membership.
func (s pathSet) contains(p document.Path) bool {
	_, ok := s[p]
	return ok
}

// covers reports whether the path or any of its ancestors is in the set.
func (s pathSet) covers(p document.Path) bool {
	if len(s) == 0 {
		return false
	}
	var cur document.Path
	for _, seg := range p.Segments() {
		cur = cur.Child(seg)
		if _, ok := s[cur]; ok {
			return true
		}
	}
	return false
}
