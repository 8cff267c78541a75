package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	rberrors "github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/integrations"
)

// Tree returns every entry of the repository tree at the read ref.
func (c *Client) Tree(ctx context.Context) ([]TreeEntry, error) {
	ref, err := c.readRef(ctx)
	if err != nil {
		return nil, err
	}

	var resp treeResponse
	if err := c.Get(ctx, c.url("/git/trees/"+escapePath(ref)+"?recursive=1"), &resp); err != nil {
		return nil, fmt.Errorf("fetch tree %s@%s: %w", c.FullName(), ref, err)
	}
	if resp.Truncated {
		return nil, rberrors.New(rberrors.ErrCodeUnsupported, "tree of %s@%s is too large to list", c.FullName(), ref)
	}
	return resp.Tree, nil
}

// ListFilePaths returns the path of every file in the repository.
func (c *Client) ListFilePaths(ctx context.Context) ([]string, error) {
	entries, err := c.Tree(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type == "blob" {
			paths = append(paths, e.Path)
		}
	}
	return paths, nil
}

// ReadFileRaw returns the content of the file at p.
func (c *Client) ReadFileRaw(ctx context.Context, p string) (string, error) {
	ref, err := c.readRef(ctx)
	if err != nil {
		return "", err
	}
	if err := rberrors.ValidatePath(p); err != nil {
		return "", err
	}

	u := c.url("/contents/"+escapePath(p)) + "?ref=" + url.QueryEscape(ref)
	text, err := c.GetTextWithHeaders(ctx, u, map[string]string{"Accept": "application/vnd.github.raw+json"})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return "", rberrors.Wrap(rberrors.ErrCodeFileNotFound, err, "%s not found in %s@%s", p, c.FullName(), ref)
		}
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return text, nil
}

// ReadFileLines returns the lines of the file at p without line endings.
func (c *Client) ReadFileLines(ctx context.Context, p string) ([]string, error) {
	text, err := c.ReadFileRaw(ctx, p)
	if err != nil {
		return nil, err
	}
	return splitLines(text), nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
