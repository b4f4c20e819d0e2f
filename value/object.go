package value

// MapObject is a map-like value whose entries are computed on demand.
//
// Kind reports KindMap for map objects; iteration, Len and Keys go through
// the object's Keys method.
type MapObject interface {
	// Keys returns the entry names. Order does not matter.
	Keys() []string

	// Lookup returns the entry for key and whether it exists.
	Lookup(key string) (Value, bool)
}
