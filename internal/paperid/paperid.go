// Package paperid resolves canonical paper identifiers from reference URLs
// and builds the external links derived from them.
package paperid

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/papernotes/internal/apperr"
)

// segmentRe matches a whole path segment of the form <digits>.<digits>.
var segmentRe = regexp.MustCompile(`^\d+\.\d+$`)

// ID is a canonical two-part numeric paper identifier such as "2501.12345".
type ID string

func (id ID) String() string { return string(id) }

// Resolve returns the first path segment of rawURL that looks like a paper
// identifier. A URL without one yields a recoverable RecordError wrapping
// apperr.ErrMalformedReference.
func Resolve(rawURL string) (ID, error) {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", apperr.Record("resolve", trimmed, fmt.Errorf("%w: %v", apperr.ErrMalformedReference, err))
	}
	for _, seg := range strings.Split(u.EscapedPath(), "/") {
		if segmentRe.MatchString(seg) {
			return ID(seg), nil
		}
	}
	return "", apperr.Record("resolve", trimmed,
		fmt.Errorf("%w: no <digits>.<digits> path segment", apperr.ErrMalformedReference))
}

// AbsURL is the abstract page on arXiv.
func AbsURL(id ID) string { return "https://arxiv.org/abs/" + string(id) }

// PDFURL is the PDF download on arXiv.
func PDFURL(id ID) string { return "https://arxiv.org/pdf/" + string(id) + ".pdf" }

// AlphaXivURL is the discussion mirror on alphaXiv.
func AlphaXivURL(id ID) string { return "https://www.alphaxiv.org/abs/" + string(id) }
