package nuget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/refbump/pkg/cache"
	"github.com/matzehuels/refbump/pkg/integrations"
)

// DefaultServiceIndex is the nuget.org v3 feed.
const DefaultServiceIndex = "https://api.nuget.org/v3/index.json"

// registrationTypes are tried in order; 3.6.0 includes SemVer 2.0.0
// versions.
var registrationTypes = []string{
	"RegistrationsBaseUrl/3.6.0",
	"RegistrationsBaseUrl/3.4.0",
	"RegistrationsBaseUrl",
}

// PackageInfo lists the published versions of a package.
type PackageInfo struct {
	ID       string        `json:"id"`
	Versions []VersionInfo `json:"versions"`
}

// VersionInfo describes one published version.
type VersionInfo struct {
	Version    string   `json:"version"`
	Listed     bool     `json:"listed"`
	Frameworks []string `json:"frameworks,omitempty"`
}

// Client reads package registrations from a NuGet v3 feed.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	serviceIndex string

	mu           sync.Mutex
	registration string
}

// NewClient creates a client for the feed at serviceIndex, caching
// responses in c for ttl. An empty serviceIndex uses nuget.org.
func NewClient(c cache.Cache, ttl time.Duration, serviceIndex string) *Client {
	if serviceIndex == "" {
		serviceIndex = DefaultServiceIndex
	}
	return &Client{
		Client:       integrations.NewClient(c, "nuget", ttl, map[string]string{"Accept": "application/json"}),
		serviceIndex: serviceIndex,
	}
}

// ServiceIndex returns the feed URL.
func (c *Client) ServiceIndex() string { return c.serviceIndex }

// FetchPackage returns every version of id the feed publishes.
//
// Returns [integrations.ErrNotFound] when the feed does not know the id.
func (c *Client) FetchPackage(ctx context.Context, id string, refresh bool) (*PackageInfo, error) {
	lower := integrations.NormalizePkgName(id)
	if lower == "" {
		return nil, errors.New("package id is required")
	}

	var info PackageInfo
	err := c.Cached(ctx, c.serviceIndex+"|"+lower, refresh, &info, func() error {
		return c.fetch(ctx, id, lower, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, id, lower string, info *PackageInfo) error {
	base, err := c.registrationBase(ctx)
	if err != nil {
		return err
	}

	var index registrationIndex
	if err := c.Get(ctx, base+integrations.URLEncode(lower)+"/index.json", &index); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: nuget package %s", err, id)
		}
		return err
	}

	out := PackageInfo{ID: id}
	for _, page := range index.Items {
		leaves := page.Items
		if leaves == nil && page.ID != "" {
			var full registrationPage
			if err := c.Get(ctx, page.ID, &full); err != nil {
				return fmt.Errorf("fetch registration page %s: %w", page.ID, err)
			}
			leaves = full.Items
		}
		for _, leaf := range leaves {
			out.Versions = append(out.Versions, versionInfo(leaf.CatalogEntry))
		}
	}
	if canonical := firstEntryID(index); canonical != "" {
		out.ID = canonical
	}
	*info = out
	return nil
}

// versionInfo flattens a catalog entry. A dependency group without a target
// framework applies to every framework and is kept as "any".
func versionInfo(e catalogEntry) VersionInfo {
	v := VersionInfo{Version: e.Version, Listed: e.Listed == nil || *e.Listed}
	seen := map[string]bool{}
	for _, g := range e.DependencyGroups {
		fw := strings.TrimSpace(g.TargetFramework)
		if fw == "" {
			fw = "any"
		}
		if seen[strings.ToLower(fw)] {
			continue
		}
		seen[strings.ToLower(fw)] = true
		v.Frameworks = append(v.Frameworks, fw)
	}
	return v
}

func firstEntryID(index registrationIndex) string {
	for _, p := range index.Items {
		for _, l := range p.Items {
			if l.CatalogEntry.ID != "" {
				return l.CatalogEntry.ID
			}
		}
	}
	return ""
}

// registrationBase resolves and remembers the registration resource URL.
func (c *Client) registrationBase(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registration != "" {
		return c.registration, nil
	}

	var idx serviceIndex
	err := c.Cached(ctx, "index|"+c.serviceIndex, false, &idx, func() error {
		return c.Get(ctx, c.serviceIndex, &idx)
	})
	if err != nil {
		return "", fmt.Errorf("fetch service index: %w", err)
	}

	for _, want := range registrationTypes {
		for _, r := range idx.Resources {
			if r.Type == want && r.ID != "" {
				base := r.ID
				if !strings.HasSuffix(base, "/") {
					base += "/"
				}
				c.registration = base
				return base, nil
			}
		}
	}
	return "", fmt.Errorf("service index %s has no registration resource", c.serviceIndex)
}
