// Package migration loads explicit update and removal instructions.
//
// Instructions come either from a JSON file
//
//	{ "update": { "Newtonsoft.Json": "[13.0,14.0)" }, "remove": ["Legacy.Lib"] }
//
// or from command-line tokens of the form "<id>:<range>". A batch is
// validated as a whole: one bad range rejects every instruction so no
// manifest is touched by a half-applied migration.
package migration

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/version"
)

// Kind is the instruction type.
type Kind int

const (
	KindUpdate Kind = iota
	KindRemove
)

func (k Kind) String() string {
	if k == KindRemove {
		return "remove"
	}
	return "update"
}

// Instruction is one explicit change to apply to matching dependencies.
// Range is the zero value for removals.
type Instruction struct {
	Kind    Kind
	Package string
	Range   version.Range
}

// Matches reports whether the instruction targets the dependency name.
func (i Instruction) Matches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(i.Package), strings.TrimSpace(name))
}

func (i Instruction) String() string {
	if i.Kind == KindRemove {
		return "remove " + i.Package
	}
	return i.Package + ":" + i.Range.String()
}

// File is the on-disk migration configuration.
type File struct {
	Update map[string]string `json:"update"`
	Remove []string          `json:"remove"`
}

// Load reads and parses a migration file.
func Load(path string) ([]Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read migration file %s", path)
	}
	return Parse(data)
}

// Parse decodes a migration file. Updates are returned ordered by package
// id, followed by removals in file order.
func Parse(data []byte) ([]Instruction, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMigration, err, "decode migration file")
	}
	return f.Instructions()
}

// Instructions validates f and converts it to instructions.
func (f File) Instructions() ([]Instruction, error) {
	ids := make([]string, 0, len(f.Update))
	for id := range f.Update {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	var errs []error
	out := make([]Instruction, 0, len(f.Update)+len(f.Remove))
	for _, id := range ids {
		in, err := update(id, f.Update[id])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, in)
	}
	for _, id := range f.Remove {
		id = strings.TrimSpace(id)
		if err := errors.ValidateNuGetID(id); err != nil {
			errs = append(errs, fmt.Errorf("remove %q: %w", id, err))
			continue
		}
		out = append(out, Instruction{Kind: KindRemove, Package: id})
	}
	if len(errs) > 0 {
		return nil, errors.Wrap(errors.ErrCodeInvalidMigration, stderrors.Join(errs...), "invalid migration")
	}
	return out, nil
}

// ParseToken parses "<id>:<range>".
func ParseToken(token string) (Instruction, error) {
	id, expr, ok := strings.Cut(token, ":")
	if !ok {
		return Instruction{}, errors.New(errors.ErrCodeInvalidMigration, "invalid package token %q: want <id>:<range>", token)
	}
	in, err := update(id, expr)
	if err != nil {
		return Instruction{}, errors.Wrap(errors.ErrCodeInvalidMigration, err, "invalid package token %q", token)
	}
	return in, nil
}

// ParseTokens parses every token, rejecting the batch if any is invalid.
func ParseTokens(tokens []string) ([]Instruction, error) {
	var errs []error
	out := make([]Instruction, 0, len(tokens))
	for _, t := range tokens {
		in, err := ParseToken(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, in)
	}
	if len(errs) > 0 {
		return nil, errors.Wrap(errors.ErrCodeInvalidMigration, stderrors.Join(errs...), "invalid migration")
	}
	return out, nil
}

func update(id, expr string) (Instruction, error) {
	id = strings.TrimSpace(id)
	if err := errors.ValidateNuGetID(id); err != nil {
		return Instruction{}, fmt.Errorf("update %q: %w", id, err)
	}
	r, err := version.ParseInterval(expr)
	if err != nil {
		return Instruction{}, fmt.Errorf("update %q: %w", id, err)
	}
	return Instruction{Kind: KindUpdate, Package: id, Range: r}, nil
}

// Find returns the first instruction matching name.
func Find(instructions []Instruction, name string) (Instruction, bool) {
	for _, in := range instructions {
		if in.Matches(name) {
			return in, true
		}
	}
	return Instruction{}, false
}
