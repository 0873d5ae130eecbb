package tagging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/papernotes/internal/apperr"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want TagSet
	}{
		{"basic", []string{"LLM", " Agents ", "Reinforcement Learning"}, TagSet{"#llm", "#agents", "#reinforcement-learning"}},
		{"duplicate markers", []string{"##rag", "#Vision"}, TagSet{"#rag", "#vision"}},
		{"truncates", []string{"a", "b", "c", "d"}, TagSet{"#a", "#b", "#c"}},
		{"drops empty", []string{"", "  ", "#", "x"}, TagSet{"#x"}},
		{"collapses spaces", []string{"multi   word  tag"}, TagSet{"#multi-word-tag"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestSplitReply(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, SplitReply(" a, b c ,d, e"))
	assert.Empty(t, SplitReply(" , "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 10))
	assert.Equal(t, "hi", Truncate("hi", 0))
}

func TestTagSetString(t *testing.T) {
	assert.Equal(t, "#a #b #c", TagSet{"#a", "#b", "#c"}.String())
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsFatal(err))
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeOpenAI(t *testing.T, status int, reply string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream","type":"server_error"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggest(t *testing.T) {
	var seen chatRequest
	srv := fakeOpenAI(t, http.StatusOK, "Large Language Models, Agents, RL, Extra", &seen)

	c, err := NewOpenAIClient(Options{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		Temperature: DefaultTemperature,
		MaxChars:    5,
		Timeout:     time.Second,
	})
	require.NoError(t, err)

	got, err := c.Suggest(context.Background(), "abcdefghij")
	require.NoError(t, err)
	assert.Equal(t, []string{"Large Language Models", "Agents", "RL"}, got)

	assert.Equal(t, DefaultModel, seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, SystemPrompt, seen.Messages[0].Content)
	assert.Equal(t, "abcde", seen.Messages[1].Content)
	assert.InDelta(t, 0.2, seen.Temperature, 0.001)
}

func TestSuggestAuthFailure(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, "x", nil)
	c, err := NewOpenAIClient(Options{APIKey: "wrong", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = c.Suggest(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTaggingService))
}

func TestTagsWrapsRecordError(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusInternalServerError, "", nil)
	c, err := NewOpenAIClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = Tags(context.Background(), c, "2025/1.2.md", "text")
	require.Error(t, err)
	assert.True(t, apperr.IsRecoverable(err))
	assert.True(t, errors.Is(err, apperr.ErrTaggingService))
}

type stubSuggester struct {
	labels []string
	err    error
}

func (s stubSuggester) Suggest(context.Context, string) ([]string, error) { return s.labels, s.err }

func TestTagsNormalizes(t *testing.T) {
	set, err := Tags(context.Background(), stubSuggester{labels: []string{"Graph Neural Nets", "#GNN"}}, "k", "t")
	require.NoError(t, err)
	assert.Equal(t, TagSet{"#graph-neural-nets", "#gnn"}, set)
}

func TestTagsEmptyReply(t *testing.T) {
	_, err := Tags(context.Background(), stubSuggester{labels: []string{" "}}, "k", "t")
	require.Error(t, err)
	assert.True(t, apperr.IsRecoverable(err))
}

func TestTagsPlainError(t *testing.T) {
	_, err := Tags(context.Background(), stubSuggester{err: errors.New("dial tcp")}, "k", "t")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTaggingService))
}
