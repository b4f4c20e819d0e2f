package value

// MergeMaps layers map values into a single read-only map.
//
// Later sources shadow earlier ones when keys overlap; a key that is present
// in a later source wins even when its value is nil. Non-map sources are
// ignored. The sources are not copied or modified.
func MergeMaps(sources ...Value) Value {
	maps := make([]Value, 0, len(sources))
	for _, src := range sources {
		if src.Kind() == KindMap {
			maps = append(maps, src)
		}
	}
	switch len(maps) {
	case 0:
		return FromMap(nil)
	case 1:
		return maps[0]
	}
	return FromObject(&mergedMap{layers: maps})
}

type mergedMap struct {
	layers []Value
}

func (m *mergedMap) Keys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, layer := range m.layers {
		for _, key := range layer.Keys() {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func (m *mergedMap) Lookup(key string) (Value, bool) {
	for i := len(m.layers) - 1; i >= 0; i-- {
		if val, ok := m.layers[i].Lookup(key); ok {
			return val, true
		}
	}
	return Undefined(), false
}
