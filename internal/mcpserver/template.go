package mcpserver

import "github.com/starford/papernotes/internal/note"

// TemplateURI is the resource URI of the note template.
const TemplateURI = "papernotes://note-template"

// NoteFormatGuide explains the stored note layout to LLM clients. The
// raw Go template follows it verbatim.
const NoteFormatGuide = `# Paper Note Format

Notes live at <year>/<arxiv-id>.md under the archive root. Each is generated
once from the reading list and never regenerated; only its Tags line is
filled in later.

- Line 1 is "# <title>".
- Link fields are bullets of the form "- **Name**: value".
- "- **Tags**:" starts empty. Once tagged it holds up to three lowercase,
  dash-joined labels, each prefixed with "#" (e.g. "#llm #agents #rag").
- "## Notes" holds the paper abstract and is the text used for tagging.
- Sections are separated by "---" rules.

## Template

`

func templateText() string {
	return NoteFormatGuide + "```\n" + note.Template + "```\n"
}
