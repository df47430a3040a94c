package bones

// boneRef locates a bone on a rig.
type boneRef struct {
	part  int
	index int
}

// IndexCache memoises bone name resolution for one entity. Misses are cached
// too, so a name that does not exist on the rig is looked up once per part.
// Owned by the tick context; never shared across entities.
type IndexCache struct {
	parts  []map[string]int
	missed map[string]struct{}
}

func newIndexCache() *IndexCache {
	return &IndexCache{missed: make(map[string]struct{})}
}

// Resolve finds the first part whose rig contains name. The part's map is
// created on the first attempt against it.
func (c *IndexCache) Resolve(s SkeletonAccessor, id uint64, partCount int, name string) (boneRef, bool) {
	if len(c.parts) < partCount {
		grown := make([]map[string]int, partCount)
		copy(grown, c.parts)
		c.parts = grown
	}

	for part := 0; part < partCount; part++ {
		names := c.parts[part]
		if names == nil {
			names = make(map[string]int)
			c.parts[part] = names
		}

		idx, ok := names[name]
		if !ok {
			resolved, found := s.ResolveBoneIndex(id, part, name)
			if !found {
				resolved = -1
			}
			names[name] = resolved
			idx = resolved
		}
		if idx >= 0 {
			return boneRef{part: part, index: idx}, true
		}
	}
	return boneRef{}, false
}

// markMissed records an unresolved name and reports whether it is new.
func (c *IndexCache) markMissed(name string) bool {
	if _, ok := c.missed[name]; ok {
		return false
	}
	c.missed[name] = struct{}{}
	return true
}
