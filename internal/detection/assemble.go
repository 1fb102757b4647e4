package detection

// Group is a chain of linked edges reported as one streak.
type Group struct {
	// Root is the ID the chain was started from.
	Root int `json:"root"`

	// IDs lists the edges in traversal order, Root first.
	IDs []int `json:"ids"`

	// Box encloses the bounding boxes of all edges in the chain.
	Box BoundingBox `json:"bounding_box"`
}

// Chain follows connectivity from root until NoConnection, an unknown ID, or
// an edge already visited in this traversal. It returns the visited IDs and
// the union of their boxes. ok is false when root is not in the set.
func Chain(set EdgeSet, root int) (ids []int, box BoundingBox, ok bool) {
	seen := make(map[int]bool)
	id := root
	for id != NoConnection && !seen[id] {
		e, found := set.ByID(id)
		if !found {
			break
		}
		seen[id] = true
		if len(ids) == 0 {
			box = e.Box
		} else {
			box = box.Union(e.Box)
		}
		ids = append(ids, id)
		id = e.Connectivity
	}
	return ids, box, len(ids) > 0
}

// Assemble groups the edges of a linked set into streaks.
//
// Edges are scanned in ID order; each edge not yet reached by an earlier
// chain starts a new group. A chain may run into an edge that already belongs
// to another group (several fragments linking to the same target); that edge
// is included again so each group box covers its full chain.
func Assemble(set EdgeSet) []Group {
	grouped := make(map[int]bool, set.Len())
	groups := make([]Group, 0)

	for _, e := range set.edges {
		if grouped[e.ID] {
			continue
		}
		ids, box, ok := Chain(set, e.ID)
		if !ok {
			continue
		}
		for _, id := range ids {
			grouped[id] = true
		}
		groups = append(groups, Group{Root: e.ID, IDs: ids, Box: box})
	}
	return groups
}
