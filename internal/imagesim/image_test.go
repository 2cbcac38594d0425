package imagesim

import (
	"errors"
	"testing"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"size\n\t^0", "size"},
		{"add: anObject\n\t^anObject", "add:"},
		{"at: i put: v\n\t^v", "at:put:"},
		{"+ other\n\t^self", "+"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseSelector(tt.source); got != tt.want {
			t.Errorf("parseSelector(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestDefineClass_FromDefinition(t *testing.T) {
	im := NewImage()
	err := im.Apply(Change{
		Type:       "AddClass",
		Definition: "Object subclass: #Account\n\tinstanceVariableNames: 'balance'\n\tpackage: 'Banking'",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !im.HasClass("Account") {
		t.Fatal("expected Account")
	}
	if !im.HasPackage("Banking") {
		t.Error("expected package derived from definition")
	}
	if im.classes["Account"].Superclass != "Object" {
		t.Errorf("expected superclass Object, got %q", im.classes["Account"].Superclass)
	}
}

func TestRenameClass_UpdatesReferences(t *testing.T) {
	im := Sample()
	if err := im.Apply(Change{Type: "RenameClass", ClassName: "Collection", NewName: "AbstractCollection"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if im.HasClass("Collection") {
		t.Error("old name still present")
	}
	if im.classes["Bag"].Superclass != "AbstractCollection" {
		t.Errorf("expected Bag superclass to follow rename, got %q", im.classes["Bag"].Superclass)
	}
	if _, ok := im.Method("AbstractCollection", "isEmpty"); !ok {
		t.Error("expected methods to move with the class")
	}
}

func TestRemovePackage_RemovesClasses(t *testing.T) {
	im := Sample()
	if err := im.Apply(Change{Type: "RemovePackage", Package: "Graphics"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if im.HasClass("Point") {
		t.Error("expected Point to be removed with its package")
	}
}

func TestClassListChanges(t *testing.T) {
	im := Sample()
	steps := []Change{
		{Type: "AddInstanceVariable", ClassName: "Point", Variable: "z"},
		{Type: "RenameInstanceVariable", ClassName: "Point", Variable: "z", NewName: "depth"},
		{Type: "AddCategory", ClassName: "Point", Category: "3d"},
		{Type: "RemoveCategory", ClassName: "Point", Category: "3d"},
	}
	for _, ch := range steps {
		if err := im.Apply(ch); err != nil {
			t.Fatalf("%s: %v", ch.Type, err)
		}
	}
	ivars := im.classes["Point"].ivars
	if ivars[len(ivars)-1] != "depth" {
		t.Errorf("expected renamed ivar 'depth', got %v", ivars)
	}
	if err := im.Apply(Change{Type: "RemoveCategory", ClassName: "Point", Category: "3d"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApply_UnknownType(t *testing.T) {
	im := NewImage()
	if err := im.Apply(Change{Type: "Bogus"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
