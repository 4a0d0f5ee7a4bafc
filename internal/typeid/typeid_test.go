package typeid

import "testing"

func TestNewLayerIDValidates(t *testing.T) {
	id := NewLayerID()
	if err := Validate(id, PrefixLayer); err != nil {
		t.Fatalf("Validate(%q): %v", id, err)
	}
	if err := Validate(id, PrefixDocument); err == nil {
		t.Errorf("Validate(%q, %q) succeeded, want prefix error", id, PrefixDocument)
	}
}

func TestIDsAreFresh(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := NewLayerID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if err := Validate("not an id", PrefixLayer); err == nil {
		t.Error("Validate accepted garbage")
	}
}
