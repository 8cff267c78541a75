package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidRange, "invalid range %q", "[1.0")

	if err.Code != ErrCodeInvalidRange {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidRange)
	}
	if want := `INVALID_RANGE: invalid range "[1.0"`; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("XML syntax error on line 3")
	err := Wrap(ErrCodeInvalidManifest, cause, "parse %s", "App.csproj")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause")
	}
	if want := "INVALID_MANIFEST: parse App.csproj: XML syntax error on line 3"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := New(ErrCodeInvalidCondition, "unbalanced parentheses")
	err := fmt.Errorf("evaluate %s: %w", "App.csproj", inner)

	if !Is(err, ErrCodeInvalidCondition) {
		t.Error("Is should find a code behind fmt.Errorf wrapping")
	}
	if Is(err, ErrCodeInvalidManifest) {
		t.Error("Is matched the wrong code")
	}
	if Is(errors.New("plain"), ErrCodeInvalidInput) {
		t.Error("plain errors carry no code")
	}
	if Is(nil, ErrCodeInvalidInput) {
		t.Error("nil carries no code")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"direct", New(ErrCodeFileNotFound, "missing"), ErrCodeFileNotFound},
		{"wrapped", fmt.Errorf("read: %w", New(ErrCodeInvalidPath, "bad")), ErrCodeInvalidPath},
		{"outermost wins", Wrap(ErrCodeInvalidMigration, New(ErrCodeInvalidRange, "r"), "m"), ErrCodeInvalidMigration},
		{"plain", errors.New("x"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "boom"},
		{"coded", New(ErrCodeInvalidConfig, "unknown key"), "unknown key"},
		{
			"nested codes",
			Wrap(ErrCodeInvalidMigration, New(ErrCodeInvalidRange, `invalid range "x"`), "migration.json"),
			`migration.json: invalid range "x"`,
		},
		{
			"outer context kept",
			fmt.Errorf("open acme/shop: %w", New(ErrCodeFileNotFound, "App.csproj not found")),
			"open acme/shop: App.csproj not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
