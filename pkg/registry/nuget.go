package registry

import (
	"context"
	"errors"

	"github.com/matzehuels/refbump/pkg/integrations"
	"github.com/matzehuels/refbump/pkg/integrations/nuget"
	"github.com/matzehuels/refbump/pkg/version"
)

// NuGet adapts a NuGet feed client to Source.
type NuGet struct {
	client  *nuget.Client
	refresh bool
}

// NewNuGet returns a Source over client. With refresh set, cached
// registrations are ignored.
func NewNuGet(client *nuget.Client, refresh bool) *NuGet {
	return &NuGet{client: client, refresh: refresh}
}

// Versions lists every version the feed publishes for id. An unknown
// package has no versions.
func (n *NuGet) Versions(ctx context.Context, id string) ([]version.Candidate, error) {
	info, err := n.client.FetchPackage(ctx, id, n.refresh)
	if errors.Is(err, integrations.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]version.Candidate, len(info.Versions))
	for i, v := range info.Versions {
		out[i] = version.Candidate{Version: v.Version, Listed: v.Listed, Frameworks: v.Frameworks}
	}
	return out, nil
}
