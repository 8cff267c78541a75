package update

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/refbump/pkg/manifest"
	"github.com/matzehuels/refbump/pkg/migration"
)

const defaultWorkers = 8

// Repository reads files from a checkout or a hosted repository. Paths are
// slash separated and relative to the repository root.
type Repository interface {
	ListFilePaths(ctx context.Context) ([]string, error)
	ReadFileRaw(ctx context.Context, path string) (string, error)
	ReadFileLines(ctx context.Context, path string) ([]string, error)
}

// Publisher commits changes to a branch and proposes them for review.
type Publisher interface {
	// CommitFiles commits changes on branch, creating it from the default
	// branch when absent, and returns the commit id.
	CommitFiles(ctx context.Context, branch, message string, changes []FileChange) (string, error)
	// CreatePullRequest opens a pull request and returns its id.
	CreatePullRequest(ctx context.Context, pr PullRequest) (string, error)
}

// FileChange is the new content of one repository file.
type FileChange struct {
	Path    string
	Content string
}

// PullRequest describes a proposed change. An empty Target means the
// repository's default branch.
type PullRequest struct {
	Source string
	Target string
	Title  string
	Body   string
}

// Plan selects what a batch processes.
type Plan struct {
	// Root limits the batch to projects under this directory. Empty is the
	// repository root.
	Root string
	// Mode picks automatic or migration updates.
	Mode         Mode
	Instructions []migration.Instruction
	Workers      int
}

// ProjectResult is the outcome for one project of a batch. Exactly one of
// Result and Err is set.
type ProjectResult struct {
	Path   string
	Props  string
	Result *Result
	Err    error
}

// BatchResult collects the per-project outcomes of a batch in path order.
type BatchResult struct {
	Mode     Mode
	Projects []ProjectResult
}

// Changes returns the rewritten content of every updated project.
func (b *BatchResult) Changes() []FileChange {
	var out []FileChange
	for _, p := range b.Projects {
		if p.Result != nil && p.Result.Outcome == Updated {
			out = append(out, FileChange{Path: p.Path, Content: p.Result.Text})
		}
	}
	return out
}

// Failed returns the projects whose run ended in an error.
func (b *BatchResult) Failed() []ProjectResult {
	var out []ProjectResult
	for _, p := range b.Projects {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// ActionCount is the number of recorded actions across the batch.
func (b *BatchResult) ActionCount() int {
	n := 0
	for _, p := range b.Projects {
		if p.Result != nil {
			n += len(p.Result.Actions)
		}
	}
	return n
}

// Batch runs an Updater over every project of a repository.
type Batch struct {
	updater *Updater
	logger  *log.Logger
}

// NewBatch returns a Batch driving u.
func NewBatch(u *Updater) *Batch {
	return &Batch{updater: u, logger: u.logger}
}

// Run processes every project under plan.Root. Failures of individual
// projects are recorded on their ProjectResult; the returned error is set
// only when the repository cannot be listed or the context ends.
func (b *Batch) Run(ctx context.Context, repo Repository, plan Plan) (*BatchResult, error) {
	paths, err := repo.ListFilePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	var projects []string
	for _, p := range paths {
		if manifest.IsProject(p) && under(p, plan.Root) {
			projects = append(projects, p)
		}
	}
	slices.Sort(projects)
	b.logger.Info("found projects", "count", len(projects), "root", displayRoot(plan.Root))

	props := b.readProps(ctx, repo, paths, projects, plan.Root)

	results := make([]ProjectResult, len(projects))
	workers := plan.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range projects {
		results[i].Path = p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.project(gctx, repo, p, props, plan)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &BatchResult{Mode: plan.Mode, Projects: results}, nil
}

type propsFile struct {
	path string
	text string
	err  error
}

// readProps reads each inherited-properties file once and maps projects to
// it.
func (b *Batch) readProps(ctx context.Context, repo Repository, paths, projects []string, root string) map[string]propsFile {
	byPath := map[string]propsFile{}
	out := make(map[string]propsFile, len(projects))
	for _, p := range projects {
		found, ok := manifest.FindProps(paths, p, root)
		if !ok {
			continue
		}
		pf, seen := byPath[found]
		if !seen {
			lines, err := repo.ReadFileLines(ctx, found)
			pf = propsFile{path: found, text: strings.Join(lines, "\n"), err: err}
			byPath[found] = pf
		}
		out[p] = pf
	}
	return out
}

func (b *Batch) project(ctx context.Context, repo Repository, p string, props map[string]propsFile, plan Plan) ProjectResult {
	pr := ProjectResult{Path: p}
	in := Input{Path: p}
	if pf, ok := props[p]; ok {
		pr.Props = pf.path
		if pf.err != nil {
			pr.Err = fmt.Errorf("read %s: %w", pf.path, pf.err)
			return pr
		}
		in.Props = pf.text
	}

	text, err := repo.ReadFileRaw(ctx, p)
	if err != nil {
		pr.Err = fmt.Errorf("read %s: %w", p, err)
		return pr
	}
	in.Manifest = text

	var res *Result
	if plan.Mode == ModeMigration {
		res, err = b.updater.Migrate(ctx, in, plan.Instructions)
	} else {
		res, err = b.updater.Update(ctx, in)
	}
	if err != nil {
		b.logger.Error("project failed", "project", p, "err", err)
		pr.Err = err
		return pr
	}
	pr.Result = res
	return pr
}

func under(p, root string) bool {
	root = strings.Trim(strings.ReplaceAll(root, "\\", "/"), "/")
	if root == "" || root == "." {
		return true
	}
	p = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	root = strings.TrimPrefix(path.Clean("/"+root), "/")
	return strings.HasPrefix(strings.ToLower(p), strings.ToLower(root)+"/")
}

func displayRoot(root string) string {
	if strings.Trim(root, "/") == "" {
		return "/"
	}
	return root
}
