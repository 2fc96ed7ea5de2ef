package registryclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gren-lang/grenc/internal/semver"
)

func TestHTTPClientVersionsParsesTheResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/author/project/versions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`["1.0.0","1.2.0"]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	versions, err := c.Versions(context.Background(), mustPkg(t, "author/project"))
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 2 || versions[1] != (semver.Version{Major: 1, Minor: 2, Patch: 0}) {
		t.Fatalf("unexpected versions: %v", versions)
	}
}

func TestHTTPClientVersionsRejectsANonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	if _, err := c.Versions(context.Background(), mustPkg(t, "author/project")); err == nil {
		t.Fatalf("expected an error for a non-200 registry response")
	}
}

func TestHTTPClientMetaParsesPlatformConstraintAndDependencies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"platform": "common",
			"gren-version": "1.0.0 <= v < 2.0.0",
			"dependencies": {"author/helper": "1.0.0 <= v < 2.0.0"}
		}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	meta, err := c.Meta(context.Background(), mustPkg(t, "author/project"), semver.Version{Major: 1})
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if !meta.GrenConstraint.Accepts(semver.Version{Major: 1, Minor: 5, Patch: 0}) {
		t.Fatalf("expected the parsed gren-version constraint to accept 1.5.0")
	}
	if _, ok := meta.Dependencies[mustPkg(t, "author/helper")]; !ok {
		t.Fatalf("expected author/helper to appear among the parsed dependencies")
	}
}

func TestHTTPClientMetaRejectsAnInvalidConstraint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"platform": "common", "gren-version": "not a constraint", "dependencies": {}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	if _, err := c.Meta(context.Background(), mustPkg(t, "author/project"), semver.Version{Major: 1}); err == nil {
		t.Fatalf("expected an error for an unparseable gren-version constraint")
	}
}
