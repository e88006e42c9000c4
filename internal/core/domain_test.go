package core

import "testing"

func TestItemValidate(t *testing.T) {
	good := Item{ID: "a", Name: "Soda", Price: 5.5, Category: Other}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Item{
		{ID: "", Name: "a", Category: Other},
		{ID: "a", Name: " ", Category: Other},
		{ID: "a", Name: "a", Price: -1, Category: Other},
		{ID: "a", Name: "a", Count: -1, Category: Other},
		{ID: "a", Name: "a", Category: "snack"},
	}
	for i, it := range bads {
		if err := it.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDefaultItems(t *testing.T) {
	items := DefaultItems()
	if len(items) != 2 {
		t.Fatalf("expected 2 seed items, got %d", len(items))
	}
	if items[0].Category != Drink || items[1].Category != Food {
		t.Fatalf("unexpected seed categories: %v, %v", items[0].Category, items[1].Category)
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			t.Fatalf("seed %q invalid: %v", it.ID, err)
		}
		if it.Count != 0 {
			t.Fatalf("seed %q should start at zero", it.ID)
		}
	}
}

func TestTotalBillAndActive(t *testing.T) {
	items := []Item{
		{ID: "a", Count: 2, Price: 10},
		{ID: "b", Count: 0, Price: 3},
		{ID: "c", Count: 1, Price: 5},
	}
	if got := TotalBill(items); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	active := Active(items)
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "c" {
		t.Fatalf("unexpected active items: %+v", active)
	}
}

func TestStyleAt(t *testing.T) {
	s, err := StyleAt(0)
	if err != nil || s.Icon != "fa-beer-mug-empty" || s.Color != "bg-yellow-400" {
		t.Fatalf("unexpected first style: %+v err=%v", s, err)
	}
	if _, err := StyleAt(len(Palette())); err != ErrInvalidIcon {
		t.Fatalf("expected ErrInvalidIcon, got %v", err)
	}
	if _, err := StyleAt(-1); err != ErrInvalidIcon {
		t.Fatalf("expected ErrInvalidIcon, got %v", err)
	}
}
