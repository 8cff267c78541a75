package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/refbump/pkg/condition"
	"github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/history"
	"github.com/matzehuels/refbump/pkg/integrations/github"
	"github.com/matzehuels/refbump/pkg/migration"
	"github.com/matzehuels/refbump/pkg/registry"
	"github.com/matzehuels/refbump/pkg/repo/local"
	"github.com/matzehuels/refbump/pkg/update"
	"github.com/matzehuels/refbump/pkg/version"
)

// runOpts holds the flags shared by update and migrate.
type runOpts struct {
	root      string // only process projects under this directory
	github    string // owner/repo; empty means the local directory
	ref       string // branch, tag or commit to read on GitHub
	branch    string // branch to commit to on GitHub
	target    string // pull request base branch
	dryRun    bool   // print diffs instead of writing
	diffLines int    // max lines per diff in dry-run output
	noCache   bool   // disable the response cache
	refresh   bool   // bypass cached registry responses
	workers   int    // parallel projects; 0 uses the config value
	noHistory bool   // do not record the run
}

func (o *runOpts) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.root, "root", "", "only process projects under this repository directory")
	f.StringVar(&o.github, "github", "", "operate on a GitHub repository (owner/repo) instead of a local directory")
	f.StringVar(&o.ref, "ref", "", "GitHub branch, tag or commit to read (default branch if empty)")
	f.StringVar(&o.branch, "branch", "", "GitHub branch to commit to (generated if empty)")
	f.StringVar(&o.target, "target", "", "pull request base branch (default branch if empty)")
	f.BoolVar(&o.dryRun, "dry-run", false, "print diffs instead of writing changes")
	f.IntVar(&o.diffLines, "diff-lines", defaultDiffMaxLines, "maximum lines per diff in dry-run output")
	f.BoolVar(&o.noCache, "no-cache", false, "disable the registry response cache")
	f.BoolVar(&o.refresh, "refresh", false, "bypass cached registry responses")
	f.IntVarP(&o.workers, "workers", "w", 0, "projects processed in parallel (default from config, else 8)")
	f.BoolVar(&o.noHistory, "no-history", false, "do not record this run in the history")
}

// updateCommand creates the automatic update command.
func (c *CLI) updateCommand() *cobra.Command {
	var (
		opts       runOpts
		prerelease bool
		lock       string
	)

	cmd := &cobra.Command{
		Use:   "update [dir]",
		Short: "Float every package reference to its newest allowed version",
		Long: `Float every package reference to the newest version the project's target
frameworks can use.

Examples:
  refbump update                          # current directory
  refbump update ./src --lock major       # stay within the current major
  refbump update --github acme/shop       # open a pull request
  refbump update --dry-run --prerelease   # preview, prereleases allowed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := version.ParseLock(lock)
			if err != nil {
				return err
			}
			plan := update.Plan{Mode: update.ModeAutomatic}
			uopts := update.Options{IncludePrerelease: prerelease, Lock: l}
			return c.runBatch(cmd.Context(), &opts, dirArg(args), plan, uopts)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "allow prerelease versions")
	cmd.Flags().StringVar(&lock, "lock", "none", "pin version components: none, major or minor")
	return cmd
}

// migrateCommand creates the instructed update command.
func (c *CLI) migrateCommand() *cobra.Command {
	var (
		opts     runOpts
		file     string
		packages []string
	)

	cmd := &cobra.Command{
		Use:   "migrate [dir]",
		Short: "Move listed packages into a version range or remove them",
		Long: `Apply explicit instructions: move each listed package into a version range,
or remove it. Instructions come from a JSON file, from --package tokens, or both.

Migration file:
  {"update": {"AutoMapper": "[12.0,13.0)"}, "remove": ["Legacy.Lib"]}

Examples:
  refbump migrate -f migration.json
  refbump migrate -p "Serilog:[3.0,4.0)" -p "xunit:[2.6,3.0)"
  refbump migrate -f migration.json --github acme/shop --branch deps/serilog`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := loadInstructions(file, packages)
			if err != nil {
				return err
			}
			plan := update.Plan{Mode: update.ModeMigration, Instructions: ins}
			return c.runBatch(cmd.Context(), &opts, dirArg(args), plan, update.Options{})
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "migration file (JSON)")
	cmd.Flags().StringArrayVarP(&packages, "package", "p", nil, `instruction "<id>:<range>" (repeatable)`)
	return cmd
}

// loadInstructions merges file instructions with --package tokens. Tokens
// come first so they win over the file for the same package.
func loadInstructions(file string, tokens []string) ([]migration.Instruction, error) {
	if file == "" && len(tokens) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to migrate: pass --file or --package")
	}
	ins, err := migration.ParseTokens(tokens)
	if err != nil {
		return nil, err
	}
	if file != "" {
		fromFile, err := migration.Load(file)
		if err != nil {
			return nil, err
		}
		ins = append(ins, fromFile...)
	}
	return ins, nil
}

func dirArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

// target is where a batch reads from and writes to.
type target struct {
	name      string
	repo      update.Repository
	local     *local.Repo
	publisher update.Publisher
}

func (c *CLI) openTarget(ctx context.Context, cfg Config, opts *runOpts, dir string) (*target, error) {
	if opts.github == "" {
		r, err := local.New(dir)
		if err != nil {
			return nil, err
		}
		return &target{name: r.Root(), repo: r, local: r}, nil
	}

	owner, name, err := github.ParseRepoRef(opts.github)
	if err != nil {
		return nil, err
	}
	gh, err := github.NewClient(cfg.token(), owner, name)
	if err != nil {
		return nil, err
	}
	gh.SetRef(opts.ref)
	if _, err := gh.Repo(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", gh.FullName(), err)
	}
	return &target{name: gh.FullName(), repo: gh, publisher: gh}, nil
}

func (c *CLI) runBatch(ctx context.Context, opts *runOpts, dir string, plan update.Plan, uopts update.Options) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	store, err := c.newCache(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	tgt, err := c.openTarget(ctx, cfg, opts, dir)
	if err != nil {
		return err
	}

	uopts.Conditions = condition.NewCache()
	uopts.Logger = c.Logger
	memo := registry.NewMemo(registry.NewNuGet(newFeed(store, cfg), opts.refresh), c.Logger)
	batch := update.NewBatch(update.New(memo, uopts))

	plan.Root = opts.root
	plan.Workers = opts.workers
	if plan.Workers == 0 {
		plan.Workers = cfg.Update.Workers
	}

	started := time.Now()
	prog := newProgress(c.Logger)
	res, err := batch.Run(ctx, tgt.repo, plan)
	if err != nil {
		return err
	}
	changes := res.Changes()
	prog.done("batch finished", "projects", len(res.Projects), "changed", len(changes), "actions", res.ActionCount())

	printNewline()
	printBatch(res)
	printNewline()

	report := history.NewReport(tgt.name, started, res)
	switch {
	case len(changes) == 0:
		printInfo("No package changes")
	case opts.dryRun:
		if err := c.printDiffs(ctx, tgt.repo, changes, opts.diffLines); err != nil {
			return err
		}
		printInfo("Dry run: %d file(s) not written", len(changes))
	default:
		if err := c.publish(ctx, tgt, opts, res, report); err != nil {
			return err
		}
	}

	if !opts.dryRun && !opts.noHistory {
		c.record(ctx, cfg, report)
	}

	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d projects failed", len(failed), len(res.Projects))
	}
	return nil
}

// publish writes changes in place for a local target, or commits them to a
// branch and opens a pull request for a GitHub target.
func (c *CLI) publish(ctx context.Context, tgt *target, opts *runOpts, res *update.BatchResult, report *history.Report) error {
	changes := res.Changes()
	if tgt.local != nil {
		if err := tgt.local.WriteFiles(changes); err != nil {
			return err
		}
		printSuccess("Wrote %d file(s)", len(changes))
		for _, ch := range changes {
			printFile(ch.Path)
		}
		return nil
	}

	desc := update.Describe(res)
	branch := opts.branch
	if branch == "" {
		branch = defaultBranchName(res.Mode)
	}

	s := newSpinnerWithContext(ctx, fmt.Sprintf("Publishing to %s...", tgt.name))
	s.Start()
	sha, err := tgt.publisher.CommitFiles(ctx, branch, desc.Title, changes)
	if err != nil {
		s.StopWithError("Commit failed")
		return err
	}
	pr, err := tgt.publisher.CreatePullRequest(ctx, update.PullRequest{
		Source: branch,
		Target: opts.target,
		Title:  desc.Title,
		Body:   desc.Body,
	})
	if err != nil {
		s.StopWithError("Pull request failed")
		return err
	}
	s.StopWithSuccess(fmt.Sprintf("Opened pull request #%s", pr))

	printKeyValue("Branch", branch)
	printKeyValue("Commit", shortSHA(sha))
	report.Branch = branch
	report.PullID = pr
	return nil
}

// record saves report. History is best effort: failures only warn.
func (c *CLI) record(ctx context.Context, cfg Config, report *history.Report) {
	store, err := newHistory(ctx, cfg)
	if err != nil {
		c.Logger.Warn("history disabled", "error", err)
		return
	}
	defer store.Close()
	if err := store.Save(ctx, report); err != nil {
		c.Logger.Warn("could not record run", "error", err)
	}
}

func (c *CLI) printDiffs(ctx context.Context, repo update.Repository, changes []update.FileChange, maxLines int) error {
	for _, ch := range changes {
		before, err := repo.ReadFileRaw(ctx, ch.Path)
		if err != nil {
			return err
		}
		diff, _ := renderDiff(ch.Path, before, ch.Content, maxLines)
		fmt.Fprintln(stdout, colorizeDiff(diff))
	}
	return nil
}

func defaultBranchName(mode update.Mode) string {
	return fmt.Sprintf("%s/%s-%s", appName, mode, uuid.NewString()[:8])
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
