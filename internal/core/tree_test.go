package core

import (
	"reflect"
	"testing"
)

func testCategories() []Category {
	return []Category{
		{ID: "transport", Name: "Transport", Kind: CategoryExpense},
		{ID: "fuel", ParentID: "transport", Name: "Fuel", Kind: CategoryExpense},
		{ID: "taxi", ParentID: "transport", Name: "Taxi", Kind: CategoryExpense},
		{ID: "housing", Name: "Housing", Kind: CategoryExpense},
		{ID: "rent", ParentID: "housing", Name: "Rent", Kind: CategoryExpense},
	}
}

func TestDescendantsOf(t *testing.T) {
	tree := NewCategoryTree(testCategories())

	tests := []struct {
		name string
		id   string
		want []string
	}{
		{"parent includes children", "transport", []string{"transport", "fuel", "taxi"}},
		{"leaf is only itself", "fuel", []string{"fuel"}},
		{"unknown id", "missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.DescendantsOf(tt.id)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DescendantsOf(%s) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestAncestorPath(t *testing.T) {
	tree := NewCategoryTree(testCategories())

	got := tree.AncestorPath("fuel")
	want := []string{"fuel", "transport"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AncestorPath(fuel) = %v, want %v", got, want)
	}

	got = tree.AncestorPath("housing")
	want = []string{"housing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AncestorPath(housing) = %v, want %v", got, want)
	}
}

func TestTreeCycleSafety(t *testing.T) {
	// A corrupted parent chain must terminate, not loop.
	tree := NewCategoryTree([]Category{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	})

	if got := tree.AncestorPath("a"); len(got) != 2 {
		t.Errorf("AncestorPath on cycle = %v, want 2 nodes", got)
	}
	if got := tree.DescendantsOf("a"); len(got) != 2 {
		t.Errorf("DescendantsOf on cycle = %v, want 2 nodes", got)
	}
}
