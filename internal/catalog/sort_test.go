package catalog

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/timberline/internal/models"
)

func TestSort(t *testing.T) {
	products := []models.Product{
		product("a", "walnut slab", "slab", "walnut", 120),
		product("b", "Ash Board", "lumber", "ash", 30),
		product("c", "Maple Board", "lumber", "maple", 65),
		{ID: "d", Name: "Offcut Bin", Species: "mixed"},
	}
	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortByName, []string{"b", "c", "d", "a"}},
		{SortByPrice, []string{"b", "c", "a", "d"}},
		{SortByPriceDesc, []string{"a", "c", "b", "d"}},
		{SortBySpecies, []string{"b", "c", "d", "a"}},
		{SortKey("popularity"), []string{"b", "c", "d", "a"}},
		{SortKey(""), []string{"b", "c", "d", "a"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(Sort(products, tt.key))); diff != "" {
				t.Errorf("order (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSort_TiesBreakOnID(t *testing.T) {
	products := []models.Product{
		product("z", "Oak Board", "lumber", "oak", 40),
		product("m", "Oak Board", "lumber", "oak", 40),
		product("a", "Oak Board", "lumber", "oak", 40),
	}
	for _, key := range []SortKey{SortByName, SortByPrice, SortByPriceDesc, SortBySpecies} {
		if diff := cmp.Diff([]string{"a", "m", "z"}, ids(Sort(products, key))); diff != "" {
			t.Errorf("%s: order (-want +got):\n%s", key, diff)
		}
	}
}

func TestSort_Deterministic(t *testing.T) {
	products := Canonical()
	for _, key := range []SortKey{SortByName, SortByPrice, SortByPriceDesc, SortBySpecies} {
		first, _ := json.Marshal(Sort(products, key))
		second, _ := json.Marshal(Sort(products, key))
		if string(first) != string(second) {
			t.Errorf("%s: two sorts differ", key)
		}
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	products := []models.Product{
		product("b", "B", "lumber", "oak", 2),
		product("a", "A", "lumber", "oak", 1),
	}
	_ = Sort(products, SortByName)
	if products[0].ID != "b" {
		t.Error("input slice reordered")
	}
}

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"name":    SortByName,
		"price":   SortByPrice,
		"-price":  SortByPriceDesc,
		"species": SortBySpecies,
		" price ": SortByPrice,
		"PRICE":   SortByName,
		"":        SortByName,
	}
	for in, want := range cases {
		if got := ParseSortKey(in); got != want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", in, got, want)
		}
	}
}
