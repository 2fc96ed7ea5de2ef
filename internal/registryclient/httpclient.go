package registryclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/platform"
	"github.com/gren-lang/grenc/internal/semver"
)

// HTTPClient is the default Client: plain net/http against a package
// registry's REST surface. This mirrors the retrieval pack's own choice for
// outbound HTTP (a thin wrapper over *http.Client, not a third-party HTTP
// library) — registry/HTTP access is a black-box collaborator per §1, so
// the core only needs a correct, unsurprising default, not a feature-rich
// client.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHTTPClient builds a client on net/http's default transport with a
// 30-second request timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HTTPClient) Versions(ctx context.Context, pkg pkgname.Name) ([]semver.Version, error) {
	url := fmt.Sprintf("%s/packages/%s/%s/versions", c.BaseURL, pkg.Author, pkg.Project)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned %s for %s", resp.Status, url)
	}

	var raw []string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	versions := make([]semver.Version, 0, len(raw))
	for _, s := range raw {
		v, err := semver.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("registry returned invalid version %q: %w", s, err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

type metaWire struct {
	Platform       string            `json:"platform"`
	GrenConstraint string            `json:"gren-version"`
	Dependencies   map[string]string `json:"dependencies"`
}

func (c *HTTPClient) Meta(ctx context.Context, pkg pkgname.Name, v semver.Version) (Meta, error) {
	url := fmt.Sprintf("%s/packages/%s/%s/%s/gren.json", c.BaseURL, pkg.Author, pkg.Project, v)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Meta{}, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Meta{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Meta{}, fmt.Errorf("registry returned %s for %s", resp.Status, url)
	}

	var wire metaWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Meta{}, err
	}

	p, err := platform.Parse(wire.Platform)
	if err != nil {
		return Meta{}, err
	}
	constraint, err := semver.ParseConstraint(wire.GrenConstraint)
	if err != nil {
		return Meta{}, err
	}

	deps := make(map[pkgname.Name]semver.Constraint, len(wire.Dependencies))
	for name, c := range wire.Dependencies {
		n, err := pkgname.Parse(name)
		if err != nil {
			return Meta{}, err
		}
		con, err := semver.ParseConstraint(c)
		if err != nil {
			return Meta{}, err
		}
		deps[n] = con
	}

	return Meta{Platform: p, GrenConstraint: constraint, Dependencies: deps}, nil
}

// GitHasLocalChanges shells out to `git status --porcelain` to support the
// Publish taxonomy's uncommitted-local-changes check (§6, §7): "git on PATH
// is required for publish (local-change detection)."
func GitHasLocalChanges(ctx context.Context, repoDir string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "status", "--porcelain")
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(out) > 0, nil
}

// GitTagExists checks whether a version tag exists in the local refs/tags, for
// the Publish taxonomy's missing-git-tag check.
func GitTagExists(ctx context.Context, repoDir, tag string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "rev-parse", "--verify", "--quiet", "refs/tags/"+tag)
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("git rev-parse: %w", err)
	}
	return true, nil
}
