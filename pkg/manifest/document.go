package manifest

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strings"

	"github.com/matzehuels/refbump/pkg/errors"
)

const utf8BOM = "\ufeff"

// DependencyID identifies a dependency within the Document that produced it.
type DependencyID int

// Dependency is a read-only view of a declared package reference.
type Dependency struct {
	ID      DependencyID
	Name    string
	Version string
	// Conditions holds the declaration's own condition followed by that of
	// its enclosing ItemGroup. Blank conditions are omitted.
	Conditions []string
}

type span struct{ start, end int }

type record struct {
	name       string
	version    string
	conditions []string
	element    span
	value      span
	hasValue   bool
	updated    bool
	removed    bool
}

// Document is a parsed project or props file. Edits are recorded against
// the original text and applied on String, so untouched bytes survive
// exactly.
//
// A leading byte-order mark is dropped on Parse and never written back.
type Document struct {
	src        string
	records    []record
	frameworks []string
	properties map[string]string
}

// Parse parses manifest text.
func Parse(text string) (*Document, error) {
	d := &Document{src: strings.TrimPrefix(text, utf8BOM), properties: map[string]string{}}
	if err := d.scan(); err != nil {
		return nil, err
	}
	return d, nil
}

type frame struct {
	local     string
	start     int
	attrs     []xml.Attr
	record    int
	valueOf   int
	textStart int
	text      strings.Builder
	property  bool
}

func (d *Document) scan() error {
	dec := xml.NewDecoder(strings.NewReader(d.src))
	dec.Strict = true
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		stack             []*frame
		tfm, tfms         string
		haveTFM, haveTFMs bool
	)
	for {
		offset := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest")
		}
		end := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			f := &frame{local: t.Name.Local, start: offset, attrs: t.Copy().Attr, record: -1, valueOf: -1, textStart: end}
			var parent *frame
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}

			switch {
			case isDependencyElement(t.Name.Local):
				if name, ok := attr(t.Attr, "Include", "Update"); ok {
					f.record = d.addRecord(name, d.src[offset:end], offset, t.Attr, parent)
				}
			case parent != nil && parent.record >= 0 && strings.EqualFold(t.Name.Local, "Version"):
				if !d.records[parent.record].hasValue {
					f.valueOf = parent.record
				}
			case parent != nil && strings.EqualFold(parent.local, "PropertyGroup"):
				f.property = true
			}
			stack = append(stack, f)

		case xml.CharData:
			if n := len(stack); n > 0 && (stack[n-1].valueOf >= 0 || stack[n-1].property) {
				stack[n-1].text.Write(t)
			}

		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if f.record >= 0 {
				d.records[f.record].element = span{f.start, end}
			}
			if f.valueOf >= 0 {
				r := &d.records[f.valueOf]
				r.value = trimSpan(d.src, span{f.textStart, offset})
				r.version = strings.TrimSpace(f.text.String())
				r.hasValue = true
			}
			if f.property {
				value := strings.TrimSpace(f.text.String())
				if _, seen := d.properties[strings.ToLower(f.local)]; !seen {
					d.properties[strings.ToLower(f.local)] = value
				}
				switch {
				case strings.EqualFold(f.local, "TargetFrameworks") && !haveTFMs && value != "":
					tfms, haveTFMs = value, true
				case strings.EqualFold(f.local, "TargetFramework") && !haveTFM && value != "":
					tfm, haveTFM = value, true
				}
			}
		}
	}

	switch {
	case haveTFMs:
		d.frameworks = SplitFrameworks(tfms)
	case haveTFM:
		d.frameworks = SplitFrameworks(tfm)
	}
	return nil
}

func (d *Document) addRecord(name, tag string, offset int, attrs []xml.Attr, parent *frame) int {
	r := record{name: strings.TrimSpace(name)}
	if c, ok := attr(attrs, "Condition"); ok && strings.TrimSpace(c) != "" {
		r.conditions = append(r.conditions, c)
	}
	if parent != nil && strings.EqualFold(parent.local, "ItemGroup") {
		if c, ok := attr(parent.attrs, "Condition"); ok && strings.TrimSpace(c) != "" {
			r.conditions = append(r.conditions, c)
		}
	}
	for _, a := range scanAttrs(tag) {
		if strings.EqualFold(a.name, "Version") {
			r.value = span{offset + a.value.start, offset + a.value.end}
			r.version = strings.TrimSpace(unescapeAttr(tag[a.value.start:a.value.end]))
			r.hasValue = true
			break
		}
	}
	d.records = append(d.records, r)
	return len(d.records) - 1
}

func isDependencyElement(local string) bool {
	return strings.EqualFold(local, "PackageReference") || strings.EqualFold(local, "PackageVersion")
}

func attr(attrs []xml.Attr, names ...string) (string, bool) {
	for _, name := range names {
		for _, a := range attrs {
			if a.Name.Space == "" && strings.EqualFold(a.Name.Local, name) {
				return a.Value, true
			}
		}
	}
	return "", false
}

type rawAttr struct {
	name  string
	value span
}

// scanAttrs locates attribute values in a start tag the decoder has already
// validated, returning spans relative to the tag.
func scanAttrs(tag string) []rawAttr {
	var out []rawAttr
	i := 1
	for i < len(tag) && !isSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	for i < len(tag) {
		for i < len(tag) && isSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || tag[i] == '/' || tag[i] == '>' {
			break
		}
		nameStart := i
		for i < len(tag) && tag[i] != '=' && !isSpace(tag[i]) {
			i++
		}
		name := tag[nameStart:i]
		for i < len(tag) && tag[i] != '\'' && tag[i] != '"' {
			i++
		}
		if i >= len(tag) {
			break
		}
		quote := tag[i]
		valStart := i + 1
		valEnd := strings.IndexByte(tag[valStart:], quote)
		if valEnd < 0 {
			break
		}
		if k := strings.IndexByte(name, ':'); k >= 0 {
			name = name[k+1:]
		}
		out = append(out, rawAttr{name: name, value: span{valStart, valStart + valEnd}})
		i = valStart + valEnd + 1
	}
	return out
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }

func trimSpan(src string, s span) span {
	for s.start < s.end && isSpace(src[s.start]) {
		s.start++
	}
	for s.end > s.start && isSpace(src[s.end-1]) {
		s.end--
	}
	return s
}

func unescapeAttr(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var v struct {
		A string `xml:"a,attr"`
	}
	if err := xml.Unmarshal([]byte(`<x a="`+strings.ReplaceAll(s, `"`, "&quot;")+`"/>`), &v); err != nil {
		return s
	}
	return v.A
}

// SplitFrameworks splits a semicolon-separated framework list, dropping
// blanks and case-insensitive duplicates.
func SplitFrameworks(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" || seen[strings.ToLower(part)] {
			continue
		}
		seen[strings.ToLower(part)] = true
		out = append(out, part)
	}
	return out
}

// TargetFrameworks returns the frameworks the document declares.
// TargetFrameworks takes precedence over TargetFramework.
func (d *Document) TargetFrameworks() []string {
	return append([]string(nil), d.frameworks...)
}

// Properties returns every top-level property the document declares.
func (d *Document) Properties() map[string]string {
	out := make(map[string]string, len(d.properties))
	for k, v := range d.properties {
		out[k] = v
	}
	return out
}

// Dependencies lists the dependencies that have not been removed, in
// document order.
func (d *Document) Dependencies() []Dependency {
	out := make([]Dependency, 0, len(d.records))
	for i := range d.records {
		if d.records[i].removed {
			continue
		}
		out = append(out, d.view(i))
	}
	return out
}

func (d *Document) view(i int) Dependency {
	r := d.records[i]
	return Dependency{
		ID:         DependencyID(i),
		Name:       r.name,
		Version:    r.version,
		Conditions: append([]string(nil), r.conditions...),
	}
}

// SetVersion rewrites the version of id. Setting the current version again
// is a no-op.
func (d *Document) SetVersion(id DependencyID, v string) error {
	if int(id) < 0 || int(id) >= len(d.records) {
		return errors.New(errors.ErrCodeNotFound, "unknown dependency %d", id)
	}
	r := &d.records[id]
	if r.removed {
		return errors.New(errors.ErrCodeNotFound, "dependency %s was removed", r.name)
	}
	if !r.hasValue {
		return errors.New(errors.ErrCodeUnsupported, "dependency %s declares no version", r.name)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New(errors.ErrCodeInvalidVersion, "empty version for %s", r.name)
	}
	if v == r.version {
		return nil
	}
	r.version = v
	r.updated = true
	return nil
}

// Remove deletes the declaration of id. Removing twice is a no-op.
func (d *Document) Remove(id DependencyID) error {
	if int(id) < 0 || int(id) >= len(d.records) {
		return errors.New(errors.ErrCodeNotFound, "unknown dependency %d", id)
	}
	d.records[id].removed = true
	return nil
}

// Modified reports whether any edit has been recorded.
func (d *Document) Modified() bool {
	for _, r := range d.records {
		if r.updated || r.removed {
			return true
		}
	}
	return false
}

type edit struct {
	span
	text string
}

// String renders the document with all recorded edits applied.
func (d *Document) String() string {
	var edits []edit
	for _, r := range d.records {
		switch {
		case r.removed:
			edits = append(edits, edit{span: d.removalSpan(r.element)})
		case r.updated:
			edits = append(edits, edit{span: r.value, text: escape(r.version)})
		}
	}
	if len(edits) == 0 {
		return d.src
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var sb strings.Builder
	sb.Grow(len(d.src))
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		sb.WriteString(d.src[pos:e.start])
		sb.WriteString(e.text)
		pos = e.end
	}
	sb.WriteString(d.src[pos:])
	return sb.String()
}

// removalSpan widens an element span to its whole line when nothing else
// shares that line.
func (d *Document) removalSpan(s span) span {
	start := s.start
	for start > 0 && (d.src[start-1] == ' ' || d.src[start-1] == '\t') {
		start--
	}
	if start > 0 && d.src[start-1] != '\n' {
		return s
	}
	end := s.end
	for end < len(d.src) && (d.src[end] == ' ' || d.src[end] == '\t') {
		end++
	}
	switch {
	case strings.HasPrefix(d.src[end:], "\r\n"):
		end += 2
	case strings.HasPrefix(d.src[end:], "\n"):
		end++
	case end == len(d.src):
	default:
		return s
	}
	return span{start, end}
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
