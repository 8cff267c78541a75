package github

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/matzehuels/refbump/pkg/integrations"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// Client reads and writes one GitHub repository.
//
// Reads always go to the network: a batch must see the branch as it is now.
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
	owner   string
	repo    string
	ref     string

	mu            sync.Mutex
	defaultBranch string
}

// NewClient creates a client for owner/repo. Pass an empty token for
// unauthenticated access to public repositories.
func NewClient(token, owner, repo string) (*Client, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(nil, "github", 0, headers),
		baseURL: DefaultBaseURL,
		owner:   owner,
		repo:    repo,
	}, nil
}

// SetBaseURL points the client at a GitHub Enterprise or test server.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimSuffix(u, "/") }

// SetRef pins reads to a branch, tag or commit. Empty reads the default
// branch.
func (c *Client) SetRef(ref string) { c.ref = ref }

// FullName returns "owner/repo".
func (c *Client) FullName() string { return c.owner + "/" + c.repo }

// Repo fetches repository metadata.
func (c *Client) Repo(ctx context.Context) (*RepoInfo, error) {
	var info RepoInfo
	if err := c.Get(ctx, c.url(""), &info); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: github repo %s", err, c.FullName())
		}
		return nil, err
	}
	return &info, nil
}

// DefaultBranch returns the repository's default branch, fetched once.
func (c *Client) DefaultBranch(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defaultBranch != "" {
		return c.defaultBranch, nil
	}
	info, err := c.Repo(ctx)
	if err != nil {
		return "", err
	}
	if info.DefaultBranch == "" {
		return "", fmt.Errorf("github repo %s reports no default branch", c.FullName())
	}
	c.defaultBranch = info.DefaultBranch
	return c.defaultBranch, nil
}

// url builds a repository API URL. suffix starts with "/" or is empty.
func (c *Client) url(suffix string) string {
	return c.baseURL + "/repos/" + c.owner + "/" + c.repo + suffix
}

func (c *Client) readRef(ctx context.Context) (string, error) {
	if c.ref != "" {
		return c.ref, nil
	}
	return c.DefaultBranch(ctx)
}

// escapePath percent-encodes each segment of a repository path.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range parts {
		parts[i] = integrations.URLEncode(s)
	}
	return strings.Join(parts, "/")
}
