// Package note synthesizes paper notes from a fixed template and provides a
// line-preserving document model for reading sections and merging tags
// into notes that may have been edited by hand.
package note

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/papernotes/internal/apperr"
)

const (
	// TagsField names the field holding the tag set.
	TagsField = "Tags"
	// NotesSection names the section holding the abstract.
	NotesSection = "Notes"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})(\s*)(.*?)(?:\s+#+)?\s*$`)
	fieldRe   = regexp.MustCompile(`^-\s+\*\*([^*]+)\*\*:(.*)$`)
	ruleRe    = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
)

// Field is a "- **Name**: value" line.
type Field struct {
	Name  string
	Value string // text after the colon, untrimmed
	Line  int    // 0-based line index
}

// Section is a heading and the lines it owns.
type Section struct {
	Level int
	Title string
	Line  int // heading line index
	End   int // first line index after the section body
}

// Document is a parsed note. Lines are kept verbatim, so String returns
// the input byte-for-byte until a mutator runs, and mutators only touch
// the lines they own.
type Document struct {
	lines    []string
	fields   []Field
	sections []Section
}

// Parse builds a Document from raw content.
func Parse(content string) *Document {
	d := &Document{lines: strings.Split(content, "\n")}
	d.index()
	return d
}

func (d *Document) index() {
	d.fields = d.fields[:0]
	d.sections = d.sections[:0]
	fenced := false
	for i, line := range d.lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fenced = !fenced
			continue
		}
		if fenced {
			continue
		}
		// "##Notes" is a heading, "#tag" is not.
		if m := headingRe.FindStringSubmatch(line); m != nil && (len(m[1]) > 1 || m[2] != "") {
			d.sections = append(d.sections, Section{Level: len(m[1]), Title: m[3], Line: i})
			continue
		}
		if m := fieldRe.FindStringSubmatch(line); m != nil {
			d.fields = append(d.fields, Field{Name: strings.TrimSpace(m[1]), Value: m[2], Line: i})
		}
	}
	for i := range d.sections {
		d.sections[i].End = len(d.lines)
		for j := i + 1; j < len(d.sections); j++ {
			if d.sections[j].Level <= d.sections[i].Level {
				d.sections[i].End = d.sections[j].Line
				break
			}
		}
	}
}

// String serializes the document.
func (d *Document) String() string {
	return strings.Join(d.lines, "\n")
}

// Title returns the first level-1 heading, or "".
func (d *Document) Title() string {
	for _, s := range d.sections {
		if s.Level == 1 {
			return s.Title
		}
	}
	return ""
}

// Field returns the first field called name (case-insensitive).
func (d *Document) Field(name string) (Field, bool) {
	for _, f := range d.fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Fields returns every field in document order.
func (d *Document) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// TagsValue returns the value of the first line mentioning the Tags
// marker, with colons and surrounding whitespace removed. ok is false when
// no line carries the marker.
func (d *Document) TagsValue() (value string, ok bool) {
	marker := "**" + TagsField + "**"
	for _, line := range d.lines {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		v := line[idx+len(marker):]
		v = strings.ReplaceAll(v, ":", "")
		return strings.TrimSpace(v), true
	}
	return "", false
}

// HasTags reports whether the Tags marker line carries a value. A missing
// marker line counts as untagged.
func (d *Document) HasTags() bool {
	v, _ := d.TagsValue()
	return v != ""
}

// Tags returns the labels on the Tags line split on whitespace.
func (d *Document) Tags() []string {
	v, _ := d.TagsValue()
	return strings.Fields(v)
}

// Section returns the trimmed body of the first heading titled name
// (case-insensitive), up to the next heading of the same or higher level.
// Trailing horizontal rules that separate template sections are dropped.
func (d *Document) Section(name string) (string, error) {
	for _, s := range d.sections {
		if !strings.EqualFold(strings.TrimSpace(s.Title), name) {
			continue
		}
		body := d.lines[s.Line+1 : s.End]
		for len(body) > 0 {
			last := strings.TrimSpace(body[len(body)-1])
			if last != "" && !ruleRe.MatchString(last) {
				break
			}
			body = body[:len(body)-1]
		}
		return strings.TrimSpace(strings.Join(body, "\n")), nil
	}
	return "", apperr.Record("extract", name, fmt.Errorf("%w: %q", apperr.ErrSectionNotFound, name))
}

// SetTags writes tags into the first "- **Tags**:" field whose value is
// empty. Without such a field a new Tags line is appended at the end of
// the document. A field that already holds a value is left untouched.
func (d *Document) SetTags(tags []string) {
	joined := strings.Join(tags, " ")
	for _, f := range d.fields {
		if f.Name != TagsField {
			continue
		}
		if strings.TrimSpace(f.Value) != "" {
			return
		}
		line := d.lines[f.Line]
		prefix := line[:strings.Index(line, "**:")+len("**:")]
		d.lines[f.Line] = prefix + " " + joined + lineEnd(line)
		d.index()
		return
	}

	cr := d.lineEnding()
	tagLine := "- **" + TagsField + "**: " + joined + cr
	n := len(d.lines)
	if d.lines[n-1] == "" {
		d.lines = append(d.lines[:n-1], cr, tagLine, "")
	} else {
		d.lines[n-1] += cr
		d.lines = append(d.lines, tagLine, "")
	}
	d.index()
}

// lineEnding returns "\r" when the document uses CRLF line breaks.
func (d *Document) lineEnding() string {
	if len(d.lines) > 1 {
		return lineEnd(d.lines[0])
	}
	return ""
}

func lineEnd(line string) string {
	if strings.HasSuffix(line, "\r") {
		return "\r"
	}
	return ""
}

// HasTags reports whether content carries a non-empty Tags line.
func HasTags(content string) bool {
	return Parse(content).HasTags()
}

// ExtractSection returns the body of the named section of content.
func ExtractSection(content, name string) (string, error) {
	return Parse(content).Section(name)
}

// MergeTags returns content with tags written into its Tags line.
func MergeTags(content string, tags []string) string {
	d := Parse(content)
	d.SetTags(tags)
	return d.String()
}
