package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProps(t *testing.T) {
	paths := []string{
		"Directory.Build.props",
		"src/directory.build.props",
		"src/App/App.csproj",
		"src/Lib/Deep/Lib.csproj",
		"tests/Tests.csproj",
		"tools/x/Directory.Build.props",
		"other/Other.fsproj",
	}

	tests := []struct {
		project, root string
		want          string
		ok            bool
	}{
		{"src/App/App.csproj", "", "src/directory.build.props", true},
		{"src/Lib/Deep/Lib.csproj", "/", "src/directory.build.props", true},
		{"tests/Tests.csproj", "", "Directory.Build.props", true},
		{"tools/x/y/Tool.csproj", "", "tools/x/Directory.Build.props", true},
		{"src/App/App.csproj", "src", "src/directory.build.props", true},
		{"src/App/App.csproj", "src/App", "", false},
		{"other/Other.fsproj", "other", "", false},
		{"/other/Other.fsproj", "/", "Directory.Build.props", true},
		{`src\App\App.csproj`, "", "src/directory.build.props", true},
		{"tests/Tests.csproj", "src", "src/directory.build.props", true},
		{"tests/Tests.csproj", "other", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.project+"@"+tt.root, func(t *testing.T) {
			got, ok := FindProps(paths, tt.project, tt.root)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindPropsNone(t *testing.T) {
	_, ok := FindProps([]string{"a/App.csproj"}, "a/App.csproj", "")
	assert.False(t, ok)
}

func TestFindPropsRootFallback(t *testing.T) {
	paths := []string{"repo/Directory.Build.props", "other/App/App.csproj"}

	got, ok := FindProps(paths, "other/App/App.csproj", "repo")
	require.True(t, ok)
	assert.Equal(t, "repo/Directory.Build.props", got)

	_, ok = FindProps([]string{"Directory.Build.props"}, "other/App/App.csproj", "repo")
	assert.False(t, ok, "a props file above the root is never used")
}

func TestIsProject(t *testing.T) {
	assert.True(t, IsProject("src/App.csproj"))
	assert.True(t, IsProject("src/App.FSPROJ"))
	assert.True(t, IsProject("App.vbproj"))
	assert.False(t, IsProject("Directory.Build.props"))
	assert.False(t, IsProject("App.csproj.user"))
}

func TestInheritedFrameworks(t *testing.T) {
	props := mustParse(t, `<Project>
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
</Project>`)
	proj := mustParse(t, `<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <PackageReference Include="Lib1" Version="1.0.0" />
  </ItemGroup>
</Project>`)

	require.Empty(t, proj.TargetFrameworks())
	assert.Equal(t, []string{"net8.0"}, props.TargetFrameworks())
}
