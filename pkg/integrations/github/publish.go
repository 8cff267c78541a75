package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	rberrors "github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/integrations"
	"github.com/matzehuels/refbump/pkg/update"
)

const fileMode = "100644"

// CommitFiles writes changes as a single commit on branch and returns the
// commit SHA. A missing branch is created from the default branch.
func (c *Client) CommitFiles(ctx context.Context, branch, message string, changes []update.FileChange) (string, error) {
	if err := rberrors.ValidateBranchName(branch); err != nil {
		return "", err
	}
	if len(changes) == 0 {
		return "", rberrors.New(rberrors.ErrCodeInvalidInput, "no changes to commit")
	}

	parent, err := c.ensureBranch(ctx, branch)
	if err != nil {
		return "", err
	}

	var base commitResponse
	if err := c.Get(ctx, c.url("/git/commits/"+parent), &base); err != nil {
		return "", fmt.Errorf("fetch commit %s: %w", parent, err)
	}

	treeReq := createTreeRequest{BaseTree: base.Tree.SHA}
	for _, ch := range changes {
		if err := rberrors.ValidatePath(ch.Path); err != nil {
			return "", err
		}
		treeReq.Tree = append(treeReq.Tree, treeEntryRequest{Path: ch.Path, Mode: fileMode, Type: "blob", Content: ch.Content})
	}
	var tree treeResponse
	if err := c.Send(ctx, http.MethodPost, c.url("/git/trees"), treeReq, &tree); err != nil {
		return "", fmt.Errorf("create tree: %w", err)
	}

	var commit commitResponse
	commitReq := createCommitRequest{Message: message, Tree: tree.SHA, Parents: []string{parent}}
	if err := c.Send(ctx, http.MethodPost, c.url("/git/commits"), commitReq, &commit); err != nil {
		return "", fmt.Errorf("create commit: %w", err)
	}

	if err := c.Send(ctx, http.MethodPatch, c.url("/git/refs/heads/"+escapePath(branch)), updateRefRequest{SHA: commit.SHA}, nil); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", branch, commit.SHA, err)
	}
	return commit.SHA, nil
}

// ensureBranch returns the head SHA of branch, creating the branch from the
// default branch when it does not exist.
func (c *Client) ensureBranch(ctx context.Context, branch string) (string, error) {
	sha, err := c.headSHA(ctx, branch)
	if err == nil {
		return sha, nil
	}
	if !errors.Is(err, integrations.ErrNotFound) {
		return "", err
	}

	def, err := c.DefaultBranch(ctx)
	if err != nil {
		return "", err
	}
	sha, err = c.headSHA(ctx, def)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", def, err)
	}
	req := createRefRequest{Ref: "refs/heads/" + branch, SHA: sha}
	if err := c.Send(ctx, http.MethodPost, c.url("/git/refs"), req, nil); err != nil {
		return "", fmt.Errorf("create branch %s: %w", branch, err)
	}
	return sha, nil
}

func (c *Client) headSHA(ctx context.Context, branch string) (string, error) {
	var ref refResponse
	if err := c.Get(ctx, c.url("/git/ref/heads/"+escapePath(branch)), &ref); err != nil {
		return "", err
	}
	return ref.Object.SHA, nil
}

// CreatePullRequest opens a pull request and returns its number.
func (c *Client) CreatePullRequest(ctx context.Context, pr update.PullRequest) (string, error) {
	target := pr.Target
	if target == "" {
		def, err := c.DefaultBranch(ctx)
		if err != nil {
			return "", err
		}
		target = def
	}

	var resp pullRequestResponse
	req := pullRequestRequest{Title: pr.Title, Head: pr.Source, Base: target, Body: pr.Body}
	if err := c.Send(ctx, http.MethodPost, c.url("/pulls"), req, &resp); err != nil {
		return "", fmt.Errorf("open pull request %s -> %s: %w", pr.Source, target, err)
	}
	return strconv.Itoa(resp.Number), nil
}
