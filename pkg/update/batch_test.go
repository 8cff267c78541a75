package update

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rberrors "github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/migration"
	"github.com/matzehuels/refbump/pkg/version"
)

type memRepo struct {
	files map[string]string

	mu        sync.Mutex
	lineReads map[string]int
}

func (m *memRepo) ListFilePaths(context.Context) ([]string, error) {
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) ReadFileRaw(_ context.Context, path string) (string, error) {
	text, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("%s: not found", path)
	}
	return text, nil
}

func (m *memRepo) ReadFileLines(ctx context.Context, path string) ([]string, error) {
	m.mu.Lock()
	if m.lineReads == nil {
		m.lineReads = map[string]int{}
	}
	m.lineReads[path]++
	m.mu.Unlock()

	text, err := m.ReadFileRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	return strings.Split(text, "\n"), nil
}

const appProject = `<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <PackageReference Include="Lib1" Version="0.1.2" />
    <PackageReference Include="Lib2" Version="1.0.0" />
  </ItemGroup>
</Project>
`

const libProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net6.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Lib2" Version="1.0.0" />
  </ItemGroup>
</Project>
`

func repoFixture() *memRepo {
	return &memRepo{files: map[string]string{
		"src/Directory.Build.props": "<Project>\n  <PropertyGroup>\n    <TargetFramework>net8.0</TargetFramework>\n  </PropertyGroup>\n</Project>\n",
		"src/App/App.csproj":        appProject,
		"src/Lib/Lib.csproj":        libProject,
		"src/Broken/Broken.csproj":  "<Project>",
		"src/Empty/Empty.fsproj":    "<Project />",
		"tools/Tool.csproj":         appProject,
		"README.md":                 "# readme",
	}}
}

func TestBatchMigration(t *testing.T) {
	repo := repoFixture()
	reg := &fakeRegistry{versions: map[string][]string{"Lib1": {"1.5.0", "2.0.0"}}}
	ins, err := migration.ParseTokens([]string{"Lib1:[1.0,2.0)"})
	require.NoError(t, err)

	b := NewBatch(newUpdater(reg, Options{}))
	res, err := b.Run(context.Background(), repo, Plan{Root: "src", Mode: ModeMigration, Instructions: ins, Workers: 2})
	require.NoError(t, err)

	var paths []string
	for _, p := range res.Projects {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{
		"src/App/App.csproj",
		"src/Broken/Broken.csproj",
		"src/Empty/Empty.fsproj",
		"src/Lib/Lib.csproj",
	}, paths)

	app := res.Projects[0]
	require.NoError(t, app.Err)
	assert.Equal(t, "src/Directory.Build.props", app.Props)
	assert.Equal(t, Updated, app.Result.Outcome)
	assert.Equal(t, []Action{{Kind: ActionUpdate, Name: "Lib1", Previous: "0.1.2", New: "1.5.0"}}, app.Result.Actions)

	broken := res.Projects[1]
	require.Error(t, broken.Err)
	assert.Nil(t, broken.Result)
	assert.True(t, rberrors.Is(broken.Err, rberrors.ErrCodeInvalidManifest))

	empty := res.Projects[2]
	require.NoError(t, empty.Err)
	assert.Equal(t, Unchanged, empty.Result.Outcome)

	lib := res.Projects[3]
	require.NoError(t, lib.Err)
	assert.Equal(t, Unchanged, lib.Result.Outcome)
	assert.Empty(t, lib.Result.Actions, "instruction for a package the project lacks leaves no trace")
	assert.Equal(t, []string{"net6.0"}, lib.Result.Frameworks)

	changes := res.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "src/App/App.csproj", changes[0].Path)
	assert.Equal(t, strings.Replace(appProject, "0.1.2", "1.5.0", 1), changes[0].Content)

	assert.Len(t, res.Failed(), 1)
	assert.Equal(t, 1, res.ActionCount())
	assert.Equal(t, 1, repo.lineReads["src/Directory.Build.props"], "props files are read once per batch")
}

func TestBatchAutomaticWholeRepo(t *testing.T) {
	repo := repoFixture()
	reg := &fakeRegistry{versions: map[string][]string{
		"Lib1": {"0.1.3", "1.0.0"},
		"Lib2": {"1.0.1"},
	}}

	b := NewBatch(newUpdater(reg, Options{Lock: version.LockMinor}))
	res, err := b.Run(context.Background(), repo, Plan{Mode: ModeAutomatic})
	require.NoError(t, err)
	require.Len(t, res.Projects, 5)

	tool := res.Projects[4]
	assert.Equal(t, "tools/Tool.csproj", tool.Path)
	require.NoError(t, tool.Err)
	assert.Equal(t, Skipped, tool.Result.Outcome, "no props above tools/ and no own framework")

	assert.Len(t, res.Changes(), 2)
	assert.Equal(t, 3, res.ActionCount())
}

func TestBatchListFailure(t *testing.T) {
	b := NewBatch(newUpdater(&fakeRegistry{}, Options{}))
	_, err := b.Run(context.Background(), &failingRepo{}, Plan{})
	require.Error(t, err)
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBatch(newUpdater(&fakeRegistry{}, Options{}))
	_, err := b.Run(ctx, repoFixture(), Plan{})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingRepo struct{ memRepo }

func (failingRepo) ListFilePaths(context.Context) ([]string, error) {
	return nil, fmt.Errorf("permission denied")
}

func TestUnder(t *testing.T) {
	assert.True(t, under("src/App/App.csproj", ""))
	assert.True(t, under("src/App/App.csproj", "/"))
	assert.True(t, under("src/App/App.csproj", "src"))
	assert.True(t, under("src/App/App.csproj", "/SRC/"))
	assert.False(t, under("srcx/App.csproj", "src"))
	assert.False(t, under("tools/Tool.csproj", "src"))
}

func TestDescribe(t *testing.T) {
	repo := repoFixture()
	reg := &fakeRegistry{versions: map[string][]string{"Lib1": {"1.5.0"}}}
	ins, err := migration.ParseTokens([]string{"Lib1:[1.0,2.0)"})
	require.NoError(t, err)
	ins = append(ins, migration.Instruction{Kind: migration.KindRemove, Package: "Lib2"})

	b := NewBatch(newUpdater(reg, Options{}))
	res, err := b.Run(context.Background(), repo, Plan{Root: "src", Mode: ModeMigration, Instructions: ins})
	require.NoError(t, err)

	d := Describe(res)
	assert.Equal(t, "Migrate 2 packages in 2 projects", d.Title)
	assert.Contains(t, d.Body, "| `src/App/App.csproj` | Lib1 | 0.1.2 | 1.5.0 |")
	assert.Contains(t, d.Body, "| `src/App/App.csproj` | Lib2 | 1.0.0 | _removed_ |")
	assert.Contains(t, d.Body, "| `src/Lib/Lib.csproj` | Lib2 | 1.0.0 | _removed_ |")
	assert.Contains(t, d.Body, "**Failed**")
	assert.Contains(t, d.Body, "src/Broken/Broken.csproj")
	assert.Contains(t, d.Body, "```json")
	assert.Contains(t, d.Body, `"kind": "remove"`)
}

func TestDescribeEmpty(t *testing.T) {
	d := Describe(&BatchResult{Mode: ModeAutomatic})
	assert.Equal(t, "Update 0 packages in 0 projects", d.Title)
	assert.Equal(t, "No package changes.\n", d.Body)
}
