// Package update rewrites project manifests to newer package versions.
//
// An [Updater] processes one manifest at a time in one of two modes:
//
//   - automatic ([Updater.Update]): every dependency floats forward within
//     the tier derived from the prerelease switch and version lock.
//   - migration ([Updater.Migrate]): explicit instructions move listed
//     packages into a range or remove them.
//
// The updater never writes files. It returns the rewritten text and an
// action log; [Batch] runs it over a repository and collects the changes a
// caller persists or publishes.
package update

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/refbump/pkg/condition"
	"github.com/matzehuels/refbump/pkg/manifest"
	"github.com/matzehuels/refbump/pkg/migration"
	"github.com/matzehuels/refbump/pkg/observability"
	"github.com/matzehuels/refbump/pkg/version"
)

// ReasonNoFramework is the skip reason for manifests without a target
// framework of their own or inherited.
const ReasonNoFramework = "no target framework"

// Mode names the kind of run.
type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeMigration Mode = "migration"
)

// Registry lists the versions of a package that every given framework can
// consume. Implementations must be safe for concurrent use.
type Registry interface {
	GetVersions(ctx context.Context, id string, frameworks []string, includePrerelease bool) ([]version.Candidate, error)
}

// Options configures an Updater.
type Options struct {
	IncludePrerelease bool
	Lock              version.Lock
	// Conditions shares compiled conditions across runs. Nil uses the
	// process-wide cache.
	Conditions *condition.Cache
	Logger     *log.Logger
}

// Input is one manifest to process.
type Input struct {
	Path     string
	Manifest string
	// Props is the text of the nearest Directory.Build.props, if any.
	Props string
}

// Outcome is the terminal state of a manifest run.
type Outcome int

const (
	Unchanged Outcome = iota
	Updated
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	}
	return "unchanged"
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// ActionKind is what happened to a dependency.
type ActionKind int

const (
	ActionUpdate ActionKind = iota
	ActionRemove
)

func (k ActionKind) String() string {
	if k == ActionRemove {
		return "remove"
	}
	return "update"
}

// MarshalText implements encoding.TextMarshaler.
func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "update":
		*k = ActionUpdate
	case "remove":
		*k = ActionRemove
	default:
		return fmt.Errorf("unknown action kind %q", b)
	}
	return nil
}

// Action records the change made to one dependency. New is empty for
// removals.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Name     string     `json:"name"`
	Previous string     `json:"previous"`
	New      string     `json:"new,omitempty"`
}

// Result is the outcome of one manifest run.
type Result struct {
	Path    string   `json:"path"`
	Outcome Outcome  `json:"outcome"`
	Reason  string   `json:"reason,omitempty"`
	Actions []Action `json:"actions,omitempty"`
	// Frameworks are the effective project frameworks.
	Frameworks []string `json:"frameworks,omitempty"`
	// Text is the serialized manifest. It equals the input unless Outcome
	// is Updated.
	Text string `json:"-"`
}

// Updater applies update policy to manifests. It holds no per-run state
// and is safe for concurrent use when its Registry is.
type Updater struct {
	registry Registry
	opts     Options
	logger   *log.Logger
}

// New returns an Updater querying reg.
func New(reg Registry, opts Options) *Updater {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Updater{registry: reg, opts: opts, logger: logger}
}

// Update floats every dependency of the manifest forward.
func (u *Updater) Update(ctx context.Context, in Input) (*Result, error) {
	tier := version.DeriveFloatTier(u.opts.IncludePrerelease, u.opts.Lock)
	return u.process(ctx, in, ModeAutomatic, func(r *run, dep manifest.Dependency) error {
		return u.float(ctx, r, dep, tier)
	})
}

// Migrate applies instructions to the manifest. Each dependency consumes at
// most the first instruction naming it; instructions naming packages the
// manifest lacks are ignored.
func (u *Updater) Migrate(ctx context.Context, in Input, instructions []migration.Instruction) (*Result, error) {
	return u.process(ctx, in, ModeMigration, func(r *run, dep manifest.Dependency) error {
		ins, ok := migration.Find(instructions, dep.Name)
		if !ok {
			return nil
		}
		if ins.Kind == migration.KindRemove {
			if err := r.doc.Remove(dep.ID); err != nil {
				return err
			}
			r.record(Action{Kind: ActionRemove, Name: dep.Name, Previous: dep.Version})
			return nil
		}
		return u.instruct(ctx, r, dep, ins.Range)
	})
}

// run carries the state of one manifest run.
type run struct {
	doc        *manifest.Document
	eval       *condition.Evaluator
	frameworks []string
	logger     *log.Logger
	actions    []Action
}

func (r *run) record(a Action) { r.actions = append(r.actions, a) }

func (u *Updater) process(ctx context.Context, in Input, mode Mode, visit func(*run, manifest.Dependency) error) (res *Result, err error) {
	start := time.Now()
	hooks := observability.Update()
	hooks.OnManifestStart(ctx, in.Path, string(mode))
	defer func() {
		outcome, actions := "failed", 0
		if res != nil {
			outcome, actions = res.Outcome.String(), len(res.Actions)
		}
		hooks.OnManifestComplete(ctx, in.Path, outcome, actions, time.Since(start), err)
	}()

	doc, err := manifest.Parse(in.Manifest)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", in.Path, err)
	}

	frameworks := doc.TargetFrameworks()
	props := condition.Properties{}
	if in.Props != "" {
		inherited, err := manifest.Parse(in.Props)
		if err != nil {
			return nil, fmt.Errorf("parse props for %s: %w", in.Path, err)
		}
		if len(frameworks) == 0 {
			frameworks = inherited.TargetFrameworks()
		}
		for k, v := range inherited.Properties() {
			props[k] = v
		}
	}
	for k, v := range doc.Properties() {
		props[k] = v
	}

	logger := u.logger.With("project", in.Path)
	if len(frameworks) == 0 {
		logger.Info("skipping project", "reason", ReasonNoFramework)
		return &Result{Path: in.Path, Outcome: Skipped, Reason: ReasonNoFramework, Text: in.Manifest}, nil
	}

	r := &run{
		doc:        doc,
		eval:       condition.NewEvaluator(u.opts.Conditions, condition.TargetFramework, props),
		frameworks: frameworks,
		logger:     logger,
	}
	for _, dep := range doc.Dependencies() {
		if err := visit(r, dep); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", in.Path, dep.Name, err)
		}
	}

	res = &Result{
		Path:       in.Path,
		Outcome:    Unchanged,
		Actions:    r.actions,
		Frameworks: frameworks,
		Text:       in.Manifest,
	}
	if doc.Modified() {
		res.Outcome = Updated
		res.Text = doc.String()
	}
	return res, nil
}

// candidates returns the parsed versions of dep usable by its effective
// frameworks. ok is false when the dependency applies to no framework or the
// registry could not answer.
func (u *Updater) candidates(ctx context.Context, r *run, dep manifest.Dependency, prerelease bool) ([]version.Version, bool, error) {
	frameworks, err := r.eval.Narrow(r.frameworks, dep.Conditions)
	if err != nil {
		return nil, false, err
	}
	if len(frameworks) == 0 {
		r.logger.Debug("dependency applies to no framework", "package", dep.Name)
		return nil, false, nil
	}

	cands, err := u.registry.GetVersions(ctx, dep.Name, frameworks, prerelease)
	if err != nil {
		r.logger.Warn("version lookup failed", "package", dep.Name, "err", err)
		return nil, false, nil
	}
	return version.ParseCandidates(version.FilterCompatible(cands, frameworks)), true, nil
}

func (u *Updater) float(ctx context.Context, r *run, dep manifest.Dependency, tier version.FloatTier) error {
	current, err := version.Parse(dep.Version)
	if err != nil {
		r.logger.Debug("ignoring dependency", "package", dep.Name, "version", dep.Version)
		return nil
	}
	versions, ok, err := u.candidates(ctx, r, dep, u.opts.IncludePrerelease)
	if err != nil || !ok {
		return err
	}

	rng := version.NewFloat(current, tier)
	best, found := version.FindBestMatch(rng, versions)
	if !found || !version.IsImprovement(current, best, rng) {
		return nil
	}
	return u.apply(r, dep, best)
}

func (u *Updater) instruct(ctx context.Context, r *run, dep manifest.Dependency, rng version.Range) error {
	current, err := version.Parse(dep.Version)
	if err != nil {
		r.logger.Debug("ignoring dependency", "package", dep.Name, "version", dep.Version)
		return nil
	}
	versions, ok, err := u.candidates(ctx, r, dep, false)
	if err != nil || !ok {
		return err
	}

	best, found := version.FindBestMatch(rng, versions)
	if !found || !version.AcceptsInstructed(current, best, rng) {
		return nil
	}
	return u.apply(r, dep, best)
}

func (u *Updater) apply(r *run, dep manifest.Dependency, to version.Version) error {
	if err := r.doc.SetVersion(dep.ID, to.String()); err != nil {
		return err
	}
	r.logger.Info("updating package", "package", dep.Name, "from", dep.Version, "to", to.String())
	r.record(Action{Kind: ActionUpdate, Name: dep.Name, Previous: dep.Version, New: to.String()})
	return nil
}
