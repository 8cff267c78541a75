// Package pkg provides the libraries behind refbump, a NuGet package
// reference updater.
//
// # Overview
//
// refbump reads .NET project files, decides which package references can
// move to a newer version, and rewrites only those version values. The pkg
// directory is organized into these areas:
//
//  1. Domain: [manifest], [condition], [framework], [version], [migration]
//  2. Orchestration: [update] (per-manifest runs and repository batches)
//  3. Infrastructure: [cache], [registry], [history], [observability]
//  4. Integrations: [integrations] (NuGet feeds, GitHub) and [repo/local]
//
// # Architecture
//
//	Repository (local checkout or GitHub)
//	         ↓
//	    [manifest] package (parse project + Directory.Build.props)
//	         ↓
//	    [condition] package (which frameworks each reference applies to)
//	         ↓
//	    [registry] package (memoised versions per package and framework set)
//	         ↓
//	    [version] package (float and range policy)
//	         ↓
//	    rewritten manifests + action log → files, pull request, history
//
// [manifest]: github.com/matzehuels/refbump/pkg/manifest
// [condition]: github.com/matzehuels/refbump/pkg/condition
// [framework]: github.com/matzehuels/refbump/pkg/framework
// [version]: github.com/matzehuels/refbump/pkg/version
// [migration]: github.com/matzehuels/refbump/pkg/migration
// [update]: github.com/matzehuels/refbump/pkg/update
// [cache]: github.com/matzehuels/refbump/pkg/cache
// [registry]: github.com/matzehuels/refbump/pkg/registry
// [history]: github.com/matzehuels/refbump/pkg/history
// [observability]: github.com/matzehuels/refbump/pkg/observability
// [integrations]: github.com/matzehuels/refbump/pkg/integrations
// [repo/local]: github.com/matzehuels/refbump/pkg/repo/local
package pkg
