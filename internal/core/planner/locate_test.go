package planner

import (
	"reflect"
	"testing"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

func TestLocateSlots(t *testing.T) {
	inv := domain.Inventory{Capacity: 10, Slots: []domain.Slot{
		{Index: 7, ItemType: "X", Quantity: 3},
		{Index: 2, ItemType: "Y", Quantity: 9},
		{Index: 1, ItemType: "X", Quantity: 4},
		{Index: 5, ItemType: "X", Quantity: 0},
	}}

	got := LocateSlots(inv, "X")
	want := []domain.Slot{{Index: 1, ItemType: "X", Quantity: 4}, {Index: 7, ItemType: "X", Quantity: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if got := LocateSlots(inv, "Z"); len(got) != 0 {
		t.Errorf("expected nothing for missing type, got %+v", got)
	}
}

func TestClamp(t *testing.T) {
	slots := []domain.Slot{{Quantity: 4}, {Quantity: 3}}
	if got := Clamp(5, slots); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := Clamp(20, slots); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := Clamp(3, nil); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
