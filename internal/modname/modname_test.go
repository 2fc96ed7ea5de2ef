package modname

import (
	"testing"

	"github.com/gren-lang/grenc/internal/pkgname"
)

func TestSegments(t *testing.T) {
	got := Raw("Html.Attributes").Segments()
	want := []string{"Html", "Attributes"}
	if len(got) != len(want) {
		t.Fatalf("Segments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Segments() = %v, want %v", got, want)
		}
	}
}

func TestValid(t *testing.T) {
	valid := []Raw{"Main", "Html.Attributes", "A.B.C"}
	for _, r := range valid {
		if !r.Valid() {
			t.Fatalf("%q reported invalid", r)
		}
	}

	invalid := []Raw{"", "main", "Html.attributes", "Html."}
	for _, r := range invalid {
		if r.Valid() {
			t.Fatalf("%q reported valid", r)
		}
	}
}

func TestCanonicalEqual(t *testing.T) {
	core, err := pkgname.Parse("gren-lang/core")
	if err != nil {
		t.Fatalf("pkgname.Parse: %v", err)
	}
	browser, err := pkgname.Parse("gren-lang/browser")
	if err != nil {
		t.Fatalf("pkgname.Parse: %v", err)
	}

	a := Canonical{Package: core, Raw: "List"}
	b := Canonical{Package: core, Raw: "List"}
	c := Canonical{Package: browser, Raw: "List"}

	if !a.Equal(b) {
		t.Fatalf("identical canonical names reported unequal")
	}
	if a.Equal(c) {
		t.Fatalf("canonical names from different packages reported equal")
	}
	if a.String() != "gren-lang/core:List" {
		t.Fatalf("String() = %q, want %q", a.String(), "gren-lang/core:List")
	}
}
