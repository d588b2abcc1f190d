package document

// Document is a record: a mapping from attribute name to Value. Key order
// is insignificant.
type Document map[string]Value

// Get walks the dotted path and returns the value found there.
func (d Document) Get(p Path) (Value, bool) {
	segments := p.Segments()
	if len(segments) == 0 {
		return Value{}, false
	}
	cur := d
	for i, seg := range segments {
		v, ok := cur[seg]
		if !ok {
			return Value{}, false
		}
		if i == len(segments)-1 {
			return v, true
		}
		child, ok := v.MapValue()
		if !ok {
			return Value{}, false
		}
		cur = child
	}
	return Value{}, false
}

// Set places v at the dotted path, creating intermediate maps as needed.
// An intermediate position holding a non-map value is replaced by a map.
func (d Document) Set(p Path, v Value) {
	segments := p.Segments()
	if len(segments) == 0 {
		return
	}
	cur := d
	for _, seg := range segments[:len(segments)-1] {
		child, ok := cur[seg].MapValue()
		if !ok {
			child = Document{}
			cur[seg] = Map(child)
		}
		cur = child
	}
	cur[segments[len(segments)-1]] = v
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// Equal reports deep equality of two documents.
func (d Document) Equal(o Document) bool {
	return Map(d).Equal(Map(o))
}
