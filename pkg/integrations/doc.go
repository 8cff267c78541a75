// Package integrations provides HTTP clients for package registries and
// source forges.
//
// Each service has its own subpackage:
//
//   - [nuget]: NuGet v3 feeds (nuget.org or any compatible server)
//   - [github]: GitHub repository contents, commits and pull requests
//
// # Client Pattern
//
// Clients embed [Client], which adds response caching through a
// [cache.Cache], retries for transient failures, and default headers:
//
//	c := nuget.NewClient(store, 24*time.Hour, nuget.DefaultServiceIndex)
//	info, err := c.FetchPackage(ctx, "Newtonsoft.Json", false)  // false = use cache
//
// [nuget]: github.com/matzehuels/refbump/pkg/integrations/nuget
// [github]: github.com/matzehuels/refbump/pkg/integrations/github
// [cache.Cache]: github.com/matzehuels/refbump/pkg/cache.Cache
package integrations
