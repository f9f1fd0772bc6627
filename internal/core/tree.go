package core

// CategoryTree is an in-memory adjacency view over one owner's categories,
// built on demand from a flat slice instead of leaning on recursive SQL.
// Traversals are cycle-safe: a corrupted parent chain terminates instead of
// looping.
type CategoryTree struct {
	byID     map[string]Category
	children map[string][]string
}

// NewCategoryTree indexes the given categories. Categories referencing a
// parent outside the slice behave as roots for traversal purposes.
func NewCategoryTree(categories []Category) *CategoryTree {
	t := &CategoryTree{
		byID:     make(map[string]Category, len(categories)),
		children: make(map[string][]string),
	}
	for _, c := range categories {
		t.byID[c.ID] = c
		if c.ParentID != "" {
			t.children[c.ParentID] = append(t.children[c.ParentID], c.ID)
		}
	}
	return t
}

// Get returns the category with the given ID.
func (t *CategoryTree) Get(id string) (Category, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// DescendantsOf returns the IDs of the category and every category below
// it, breadth-first. The category itself is always first.
func (t *CategoryTree) DescendantsOf(id string) []string {
	if _, ok := t.byID[id]; !ok {
		return nil
	}
	seen := map[string]bool{id: true}
	out := []string{id}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range t.children[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// AncestorPath returns the IDs from the category up to its root, self
// first (level 0), then parent, grandparent and so on.
func (t *CategoryTree) AncestorPath(id string) []string {
	var out []string
	seen := make(map[string]bool)
	for cur := id; cur != "" && !seen[cur]; {
		c, ok := t.byID[cur]
		if !ok {
			break
		}
		seen[cur] = true
		out = append(out, cur)
		cur = c.ParentID
	}
	return out
}
