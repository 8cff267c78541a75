// Package nuget provides an HTTP client for NuGet v3 feeds.
//
// # Overview
//
// The client resolves a feed's registration resource from its service index
// and reads each package's registration pages to list every published
// version with its listing state and the framework groups it ships.
//
// # Usage
//
//	client := nuget.NewClient(store, 24*time.Hour, nuget.DefaultServiceIndex)
//	info, err := client.FetchPackage(ctx, "Newtonsoft.Json", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, v := range info.Versions {
//	    fmt.Println(v.Version, v.Listed, v.Frameworks)
//	}
//
// # Caching
//
// Registration data is cached per lowercased package id for the TTL given
// at construction. Pass refresh=true to bypass the cache.
package nuget
