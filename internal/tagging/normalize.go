package tagging

import "strings"

const (
	// Marker prefixes every normalized tag.
	Marker = "#"
	// MaxTags is the size of a full tag set.
	MaxTags = 3
)

// TagSet is an ordered list of at most MaxTags normalized labels.
type TagSet []string

// String joins the tags with single spaces, as written on the Tags line.
func (t TagSet) String() string { return strings.Join(t, " ") }

// Normalize lowercases and trims each label, joins words with dashes and
// ensures exactly one leading marker. Empty labels are dropped; order is kept.
func Normalize(raw []string) TagSet {
	out := make(TagSet, 0, MaxTags)
	for _, r := range raw {
		if len(out) == MaxTags {
			break
		}
		t := strings.ToLower(strings.TrimSpace(r))
		t = strings.TrimLeft(t, Marker)
		t = strings.Join(strings.Fields(t), "-")
		if t == "" {
			continue
		}
		out = append(out, Marker+t)
	}
	return out
}

// SplitReply turns a comma-separated completion into at most MaxTags raw
// labels.
func SplitReply(reply string) []string {
	var out []string
	for _, part := range strings.Split(reply, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
