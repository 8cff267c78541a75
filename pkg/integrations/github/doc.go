// Package github reads and publishes to a GitHub repository.
//
// A [Client] is bound to one owner/repo and serves as both the repository
// and the publisher of an update batch:
//
//	client, err := github.NewClient(os.Getenv("GITHUB_TOKEN"), "acme", "shop")
//	if err != nil {
//	    return err
//	}
//	paths, err := client.ListFilePaths(ctx)
//	text, err := client.ReadFileRaw(ctx, "src/Shop/Shop.csproj")
//
// Publishing goes through the git data API: [Client.CommitFiles] creates
// the branch from the default branch when needed, writes one tree and one
// commit, and moves the branch. [Client.CreatePullRequest] then proposes
// the branch for review.
//
// # Authentication
//
// A token is required to publish and to read private repositories. Public
// reads work without one at a lower rate limit.
package github
