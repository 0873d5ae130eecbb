package note

import (
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/starford/papernotes/internal/arxiv"
	"github.com/starford/papernotes/internal/paperid"
	"github.com/starford/papernotes/internal/summarize"
)

//go:embed template.md.tmpl
var templateText string

// Template is the raw note template, exposed for tooling that documents
// the archive format.
var Template = templateText

var noteTmpl = template.Must(template.New("note").Option("missingkey=error").Parse(templateText))

// DateLayout formats the Added field.
const DateLayout = "2006-01-02"

// Input is everything a note is synthesized from.
type Input struct {
	ID           paperid.ID
	ReferenceURL string
	Meta         arxiv.Metadata
	Added        time.Time
	MaxIdeas     int
}

type templateData struct {
	Title        string
	AbsURL       string
	AlphaXivURL  string
	PDFURL       string
	ReferenceURL string
	Added        string
	OneLiner     string
	KeyIdeas     string
	Abstract     string
}

// Synthesize renders the note document for in. The output depends only on
// in; the Tags line is always left empty.
func Synthesize(in Input) (string, error) {
	max := in.MaxIdeas
	if max <= 0 {
		max = summarize.DefaultMaxIdeas
	}
	data := templateData{
		Title:        in.Meta.Title,
		AbsURL:       paperid.AbsURL(in.ID),
		AlphaXivURL:  paperid.AlphaXivURL(in.ID),
		PDFURL:       paperid.PDFURL(in.ID),
		ReferenceURL: in.ReferenceURL,
		Added:        in.Added.Format(DateLayout),
		OneLiner:     summarize.OneLiner(in.Meta.Abstract),
		KeyIdeas:     bulletList(summarize.KeyIdeas(in.Meta.Abstract, max)),
		Abstract:     in.Meta.Abstract,
	}
	var b strings.Builder
	if err := noteTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// bulletList renders items as a Markdown list; an empty list becomes a
// single empty bullet for the reader to fill in.
func bulletList(items []string) string {
	if len(items) == 0 {
		return "- "
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}
