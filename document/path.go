package document

import "strings"

// Path addresses a nested position inside a record: attribute-name
// segments joined by dots, e.g. "data.address.zip".
type Path string

func PathOf(segments ...string) Path {
	return Path(strings.Join(segments, "."))
}

func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

func (p Path) Child(segment string) Path {
	if p == "" {
		return Path(segment)
	}
	return Path(string(p) + "." + segment)
}

// IsAncestorOrSelf reports whether p equals other or addresses a position
// above it ("data" is an ancestor of "data.x.y").
func (p Path) IsAncestorOrSelf(other Path) bool {
	if p == other {
		return true
	}
	return strings.HasPrefix(string(other), string(p)+".")
}

func (p Path) String() string { return string(p) }
