package update

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rberrors "github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/migration"
	"github.com/matzehuels/refbump/pkg/observability"
	"github.com/matzehuels/refbump/pkg/version"
)

type query struct {
	id         string
	frameworks []string
	prerelease bool
}

type fakeRegistry struct {
	mu       sync.Mutex
	versions map[string][]string
	errs     map[string]error
	queries  []query
}

func (f *fakeRegistry) GetVersions(ctx context.Context, id string, frameworks []string, includePrerelease bool) ([]version.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query{id: id, frameworks: frameworks, prerelease: includePrerelease})
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	var out []version.Candidate
	for _, v := range f.versions[id] {
		out = append(out, version.Candidate{Version: v, Listed: true})
	}
	return out, nil
}

func (f *fakeRegistry) queriesFor(id string) []query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []query
	for _, q := range f.queries {
		if q.id == id {
			out = append(out, q)
		}
	}
	return out
}

func newUpdater(reg Registry, opts Options) *Updater {
	opts.Logger = log.New(io.Discard)
	return New(reg, opts)
}

const single = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Lib1" Version="0.1.2" />
  </ItemGroup>
</Project>
`

func lib1Registry() *fakeRegistry {
	return &fakeRegistry{versions: map[string][]string{
		"Lib1": {"0.1.1", "0.1.3", "0.2.0", "1.0.0"},
	}}
}

func TestUpdateFloatsToLatestMajor(t *testing.T) {
	u := newUpdater(lib1Registry(), Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: single})
	require.NoError(t, err)

	assert.Equal(t, Updated, res.Outcome)
	assert.Equal(t, []Action{{Kind: ActionUpdate, Name: "Lib1", Previous: "0.1.2", New: "1.0.0"}}, res.Actions)
	assert.Equal(t, strings.Replace(single, "0.1.2", "1.0.0", 1), res.Text)
	assert.Equal(t, []string{"net8.0"}, res.Frameworks)
}

func TestUpdateDropsByteOrderMark(t *testing.T) {
	const bom = "\ufeff"
	u := newUpdater(lib1Registry(), Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: bom + single})
	require.NoError(t, err)
	assert.Equal(t, Updated, res.Outcome)
	assert.Equal(t, strings.Replace(single, "0.1.2", "1.0.0", 1), res.Text)

	res, err = u.Update(context.Background(), Input{Path: "App.csproj", Manifest: bom + res.Text})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res.Outcome)
	assert.True(t, strings.HasPrefix(res.Text, bom), "unchanged manifests are returned as read")
}

func TestUpdateMinorLockStaysOnPatch(t *testing.T) {
	u := newUpdater(lib1Registry(), Options{Lock: version.LockMinor})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: single})
	require.NoError(t, err)

	require.Len(t, res.Actions, 1)
	assert.Equal(t, "0.1.3", res.Actions[0].New)
	assert.Equal(t, strings.Replace(single, "0.1.2", "0.1.3", 1), res.Text)
}

func TestUpdateMajorLock(t *testing.T) {
	u := newUpdater(lib1Registry(), Options{Lock: version.LockMajor})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: single})
	require.NoError(t, err)

	require.Len(t, res.Actions, 1)
	assert.Equal(t, "0.2.0", res.Actions[0].New)
}

func TestUpdateIsIdempotent(t *testing.T) {
	u := newUpdater(lib1Registry(), Options{})
	ctx := context.Background()

	first, err := u.Update(ctx, Input{Path: "App.csproj", Manifest: single})
	require.NoError(t, err)
	second, err := u.Update(ctx, Input{Path: "App.csproj", Manifest: first.Text})
	require.NoError(t, err)

	assert.Equal(t, Unchanged, second.Outcome)
	assert.Empty(t, second.Actions)
	assert.Equal(t, first.Text, second.Text)
}

func TestUpdatePrerelease(t *testing.T) {
	reg := &fakeRegistry{versions: map[string][]string{
		"Lib1": {"1.0.0-beta.1", "1.0.0-beta.3", "1.0.0-rc.1", "1.1.0-beta.1", "2.0.0-alpha"},
	}}
	manifest := `<Project><PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup>
<ItemGroup><PackageReference Include="Lib1" Version="1.0.0-beta.1" /></ItemGroup></Project>`

	u := newUpdater(reg, Options{IncludePrerelease: true})
	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest})
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "2.0.0-alpha", res.Actions[0].New)
	assert.True(t, reg.queriesFor("Lib1")[0].prerelease)

	u = newUpdater(reg, Options{IncludePrerelease: true, Lock: version.LockMinor})
	res, err = u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest})
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "1.0.0-beta.3", res.Actions[0].New)
}

func TestInstructedUpdate(t *testing.T) {
	reg := &fakeRegistry{versions: map[string][]string{"Lib1": {"1.5.0", "2.0.0"}}}
	u := newUpdater(reg, Options{IncludePrerelease: true})

	ins, err := migration.ParseToken("Lib1:[1.0,2.0)")
	require.NoError(t, err)

	res, err := u.Migrate(context.Background(), Input{Path: "App.csproj", Manifest: single}, []migration.Instruction{ins})
	require.NoError(t, err)

	assert.Equal(t, Updated, res.Outcome)
	assert.Equal(t, []Action{{Kind: ActionUpdate, Name: "Lib1", Previous: "0.1.2", New: "1.5.0"}}, res.Actions)
	assert.False(t, reg.queriesFor("Lib1")[0].prerelease, "migrations never ask for prereleases")
}

func TestInstructedLeavesVersionInRange(t *testing.T) {
	reg := &fakeRegistry{versions: map[string][]string{"Lib1": {"0.1.2", "0.5.0"}}}
	u := newUpdater(reg, Options{})

	ins, err := migration.ParseToken("lib1:[0.1,1.0)")
	require.NoError(t, err)

	res, err := u.Migrate(context.Background(), Input{Path: "App.csproj", Manifest: single}, []migration.Instruction{ins})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res.Outcome)
	assert.Equal(t, single, res.Text)
}

func TestInstructedDowngrade(t *testing.T) {
	reg := &fakeRegistry{versions: map[string][]string{"Lib1": {"0.0.9", "0.1.0", "0.1.2"}}}
	u := newUpdater(reg, Options{})

	ins, err := migration.ParseToken("Lib1:(,0.1.0]")
	require.NoError(t, err)

	res, err := u.Migrate(context.Background(), Input{Path: "App.csproj", Manifest: single}, []migration.Instruction{ins})
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "0.1.0", res.Actions[0].New)
}

func TestMigrateRemove(t *testing.T) {
	manifest := `<Project>
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Lib1" Version="0.1.2" />
    <PackageReference Include="Old.Lib" Version="$(OldVersion)" />
  </ItemGroup>
</Project>`
	reg := &fakeRegistry{}
	u := newUpdater(reg, Options{})

	ins := []migration.Instruction{
		{Kind: migration.KindRemove, Package: "old.lib"},
		{Kind: migration.KindUpdate, Package: "Old.Lib", Range: version.NewInterval(version.Interval{})},
		{Kind: migration.KindRemove, Package: "Absent"},
	}
	res, err := u.Migrate(context.Background(), Input{Path: "App.csproj", Manifest: manifest}, ins)
	require.NoError(t, err)

	assert.Equal(t, []Action{{Kind: ActionRemove, Name: "Old.Lib", Previous: "$(OldVersion)"}}, res.Actions)
	assert.Equal(t, strings.Replace(manifest, "    <PackageReference Include=\"Old.Lib\" Version=\"$(OldVersion)\" />\n", "", 1), res.Text)
	assert.Empty(t, reg.queries)
}

func TestMigrateIgnoresAbsentPackages(t *testing.T) {
	reg := &fakeRegistry{}
	u := newUpdater(reg, Options{})

	ins, err := migration.ParseToken("Missing:1.0")
	require.NoError(t, err)
	res, err := u.Migrate(context.Background(), Input{Path: "App.csproj", Manifest: single}, []migration.Instruction{ins})
	require.NoError(t, err)

	assert.Equal(t, Unchanged, res.Outcome)
	assert.Empty(t, res.Actions)
	assert.Empty(t, reg.queries)
}

func TestConditionNarrowsFrameworks(t *testing.T) {
	manifest := `<Project>
  <PropertyGroup>
    <TargetFrameworks>net6.0;net8.0</TargetFrameworks>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Shared" Version="1.0.0" />
  </ItemGroup>
  <ItemGroup Condition="'$(TargetFramework)'=='net6.0'">
    <PackageReference Include="Legacy" Version="1.0.0" />
  </ItemGroup>
  <ItemGroup>
    <PackageReference Include="DebugOnly" Version="1.0.0" Condition="'$(Configuration)' == 'Debug'" />
  </ItemGroup>
</Project>`
	reg := &fakeRegistry{}
	u := newUpdater(reg, Options{})

	_, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest})
	require.NoError(t, err)

	require.Len(t, reg.queriesFor("Legacy"), 1)
	assert.Equal(t, []string{"net6.0"}, reg.queriesFor("Legacy")[0].frameworks)
	assert.Equal(t, []string{"net6.0", "net8.0"}, reg.queriesFor("Shared")[0].frameworks)
	assert.Empty(t, reg.queriesFor("DebugOnly"), "a dependency applying to no framework is not looked up")
}

func TestConditionUsesDeclaredProperties(t *testing.T) {
	manifest := `<Project>
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <UseLegacy>true</UseLegacy>
  </PropertyGroup>
  <ItemGroup Condition="'$(UseLegacy)' == 'true'">
    <PackageReference Include="Legacy" Version="1.0.0" />
  </ItemGroup>
</Project>`
	reg := &fakeRegistry{}
	u := newUpdater(reg, Options{})

	_, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest})
	require.NoError(t, err)
	assert.Len(t, reg.queriesFor("Legacy"), 1)
}

func TestInvalidConditionIsFatal(t *testing.T) {
	manifest := `<Project>
  <PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup>
  <ItemGroup Condition="('$(TargetFramework)' == 'net8.0'">
    <PackageReference Include="Lib1" Version="1.0.0" />
  </ItemGroup>
</Project>`
	u := newUpdater(&fakeRegistry{}, Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, rberrors.Is(err, rberrors.ErrCodeInvalidCondition))
}

func TestInvalidManifestIsFatal(t *testing.T) {
	u := newUpdater(&fakeRegistry{}, Options{})

	_, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: "<Project><ItemGroup>"})
	require.Error(t, err)
	assert.True(t, rberrors.Is(err, rberrors.ErrCodeInvalidManifest))

	_, err = u.Update(context.Background(), Input{Path: "App.csproj", Manifest: single, Props: "<Project"})
	assert.True(t, rberrors.Is(err, rberrors.ErrCodeInvalidManifest))
}

func TestSkipsWithoutFramework(t *testing.T) {
	manifest := `<Project><ItemGroup><PackageReference Include="Lib1" Version="0.1.2" /></ItemGroup></Project>`
	reg := lib1Registry()
	u := newUpdater(reg, Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest})
	require.NoError(t, err)
	assert.Equal(t, Skipped, res.Outcome)
	assert.Equal(t, ReasonNoFramework, res.Reason)
	assert.Equal(t, manifest, res.Text)
	assert.Empty(t, reg.queries)
}

func TestInheritedFrameworks(t *testing.T) {
	manifest := `<Project><ItemGroup><PackageReference Include="Lib1" Version="0.1.2" /></ItemGroup></Project>`
	props := `<Project>
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
</Project>`
	reg := lib1Registry()
	u := newUpdater(reg, Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest, Props: props})
	require.NoError(t, err)
	assert.Equal(t, Updated, res.Outcome)
	assert.Equal(t, []string{"net8.0"}, res.Frameworks)
	assert.Equal(t, []string{"net8.0"}, reg.queriesFor("Lib1")[0].frameworks)
}

func TestOwnFrameworksBeatInherited(t *testing.T) {
	props := `<Project><PropertyGroup><TargetFramework>net472</TargetFramework></PropertyGroup></Project>`
	u := newUpdater(lib1Registry(), Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: single, Props: props})
	require.NoError(t, err)
	assert.Equal(t, []string{"net8.0"}, res.Frameworks)
}

func TestRegistryFailureMeansNoUpdate(t *testing.T) {
	manifest := `<Project>
  <PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Down" Version="1.0.0" />
    <PackageReference Include="Lib1" Version="0.1.2" />
    <PackageReference Include="Floating" Version="1.*" />
  </ItemGroup>
</Project>`
	reg := lib1Registry()
	reg.errs = map[string]error{"Down": errors.New("connection refused")}
	u := newUpdater(reg, Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: manifest})
	require.NoError(t, err)
	assert.Equal(t, []Action{{Kind: ActionUpdate, Name: "Lib1", Previous: "0.1.2", New: "1.0.0"}}, res.Actions)
	assert.Empty(t, reg.queriesFor("Floating"), "unparsable versions are inert")
}

func TestFrameworkIncompatibleCandidatesAreDropped(t *testing.T) {
	reg := &stubRegistry{cands: []version.Candidate{
		{Version: "0.2.0", Listed: true, Frameworks: []string{"net9.0"}},
		{Version: "0.1.5", Listed: true, Frameworks: []string{".NETStandard2.0"}},
		{Version: "0.3.0", Listed: false},
	}}
	u := newUpdater(reg, Options{})

	res, err := u.Update(context.Background(), Input{Path: "App.csproj", Manifest: single})
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "0.1.5", res.Actions[0].New)
}

type stubRegistry struct{ cands []version.Candidate }

func (s *stubRegistry) GetVersions(context.Context, string, []string, bool) ([]version.Candidate, error) {
	return s.cands, nil
}

type recordingHooks struct {
	observability.NoopUpdateHooks
	mu       sync.Mutex
	started  []string
	outcomes []string
}

func (h *recordingHooks) OnManifestStart(_ context.Context, path, mode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, path+":"+mode)
}

func (h *recordingHooks) OnManifestComplete(_ context.Context, path, outcome string, actions int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, path+":"+outcome)
}

func TestHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetUpdateHooks(h)
	t.Cleanup(observability.Reset)

	u := newUpdater(lib1Registry(), Options{})
	_, err := u.Update(context.Background(), Input{Path: "a.csproj", Manifest: single})
	require.NoError(t, err)
	_, err = u.Update(context.Background(), Input{Path: "b.csproj", Manifest: "<Project"})
	require.Error(t, err)

	assert.Equal(t, []string{"a.csproj:automatic", "b.csproj:automatic"}, h.started)
	assert.Equal(t, []string{"a.csproj:updated", "b.csproj:failed"}, h.outcomes)
}
