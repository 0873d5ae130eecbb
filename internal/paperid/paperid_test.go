package paperid

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/starford/papernotes/internal/apperr"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		url  string
		want ID
	}{
		{"https://huggingface.co/papers/2501.12345", "2501.12345"},
		{"https://example.org/papers/2501.12345", "2501.12345"},
		{"  https://huggingface.co/papers/2412.00001/  ", "2412.00001"},
		{"https://huggingface.co/papers/2501.12345?utm=x#top", "2501.12345"},
		{"/papers/1.2", "1.2"},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func TestResolveRejects(t *testing.T) {
	for _, u := range []string{
		"",
		"https://huggingface.co/papers/",
		"https://huggingface.co/papers/2501.12345v2",
		"https://huggingface.co/papers/abc.def",
		"https://1.2/papers/latest",
	} {
		_, err := Resolve(u)
		require.Error(t, err, u)
		assert.True(t, errors.Is(err, apperr.ErrMalformedReference), u)
		assert.True(t, apperr.IsRecoverable(err), u)
	}
}

func TestResolveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		major := rapid.IntRange(0, 99999).Draw(t, "major")
		minor := rapid.IntRange(0, 99999).Draw(t, "minor")
		prefix := rapid.SampledFrom([]string{"papers", "abs", "p", "x-y"}).Draw(t, "prefix")
		seg := fmt.Sprintf("%d.%d", major, minor)
		u := fmt.Sprintf("https://example.org/%s/%s", prefix, seg)

		got, err := Resolve(u)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", u, err)
		}
		if string(got) != seg {
			t.Fatalf("Resolve(%q) = %q, want %q", u, got, seg)
		}
	})
}

func TestResolveRejectsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "word")
		u := "https://example.org/papers/" + word
		if _, err := Resolve(u); err == nil {
			t.Fatalf("Resolve(%q) should fail", u)
		}
	})
}

func TestLinks(t *testing.T) {
	id := ID("2501.12345")
	assert.Equal(t, "https://arxiv.org/abs/2501.12345", AbsURL(id))
	assert.Equal(t, "https://arxiv.org/pdf/2501.12345.pdf", PDFURL(id))
	assert.True(t, strings.HasPrefix(AlphaXivURL(id), "https://www.alphaxiv.org/abs/"))
}
