package linter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/docqa/internal/model"
)

func TestCheckMapsMatches(t *testing.T) {
	t.Parallel()

	var gotText, gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/check", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotText = r.PostForm.Get("text")
		gotLanguage = r.PostForm.Get("language")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matches": [
				{"message": "possible typo", "offset": 5, "length": 4,
				 "rule": {"id": "MORFOLOGIK_RULE_EN_US", "issueType": "misspelling"}},
				{"message": "agreement error", "offset": 0, "length": 4,
				 "rule": {"id": "GRAMMAR_AGREEMENT", "issueType": "grammar"}},
				{"message": "out of range", "offset": 90, "length": 5,
				 "rule": {"id": "BOGUS", "issueType": "style"}}
			]
		}`))
	}))
	t.Cleanup(srv.Close)

	l, err := New(Config{BaseURL: srv.URL, Enabled: true, Language: "en-US"}, srv.Client())
	require.NoError(t, err)
	require.True(t, l.Enabled())

	doc := "This teh text"
	issues, err := l.Check(context.Background(), doc, "")
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, doc, gotText)
	assert.Equal(t, "en-US", gotLanguage)

	assert.Equal(t, "MORFOLOGIK_RULE_EN_US:5", issues[0].ID)
	assert.Equal(t, model.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "teh ", doc[issues[0].Start:issues[0].End])

	assert.Equal(t, model.SeverityError, issues[1].Severity)
}

func TestCheckConvertsMultibyteOffsets(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// "héllo wörld": the server counts characters, not bytes.
		_, _ = w.Write([]byte(`{"matches":[{"message":"m","offset":6,"length":5,"rule":{"id":"R","issueType":"style"}}]}`))
	}))
	t.Cleanup(srv.Close)

	l, err := New(Config{BaseURL: srv.URL, Enabled: true}, srv.Client())
	require.NoError(t, err)

	doc := "héllo wörld"
	issues, err := l.Check(context.Background(), doc, "en-US")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "wörld", doc[issues[0].Start:issues[0].End])
}

func TestCheckDisabled(t *testing.T) {
	t.Parallel()

	l, err := New(Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, l.Enabled())

	issues, err := l.Check(context.Background(), "anything", "en-US")
	require.NoError(t, err)
	assert.Nil(t, issues)
}

func TestCheckServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	l, err := New(Config{BaseURL: srv.URL, Enabled: true}, srv.Client())
	require.NoError(t, err)

	_, err = l.Check(context.Background(), "doc", "en-US")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "500"))
}

func TestNewRequiresBaseURLWhenEnabled(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Enabled: true}, nil)
	assert.Error(t, err)
}
