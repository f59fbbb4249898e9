package router

import (
	"testing"

	"github.com/kiribu/actor-relay/internal/dispatcher/repository"
	"github.com/stretchr/testify/assert"
)

func TestSelectHook(t *testing.T) {
	hooks := []repository.Hook{
		{Prefix: "/a", URL: "https://u1"},
		{Prefix: "/ab", URL: "https://u2"},
		{Prefix: "/money", URL: "https://money"},
	}

	tests := []struct {
		name    string
		text    string
		wantURL string
		wantOK  bool
	}{
		{name: "longest wins", text: "/abc", wantURL: "https://u2", wantOK: true},
		{name: "exact shorter", text: "/a", wantURL: "https://u1", wantOK: true},
		{name: "shorter only", text: "/ax", wantURL: "https://u1", wantOK: true},
		{name: "with args", text: "/money 10 lunch", wantURL: "https://money", wantOK: true},
		{name: "no match", text: "/note hi", wantOK: false},
		{name: "prefix must lead", text: "x/abc", wantOK: false},
		{name: "case sensitive", text: "/MONEY 10", wantOK: false},
		{name: "empty text", text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectHook(hooks, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantURL, got.URL)
			}
		})
	}
}

func TestSelectHookOrderIndependent(t *testing.T) {
	a := []repository.Hook{{Prefix: "/ab", URL: "https://u2"}, {Prefix: "/a", URL: "https://u1"}}
	b := []repository.Hook{{Prefix: "/a", URL: "https://u1"}, {Prefix: "/ab", URL: "https://u2"}}

	ha, _ := SelectHook(a, "/abc")
	hb, _ := SelectHook(b, "/abc")
	assert.Equal(t, ha, hb)
	assert.Equal(t, "https://u2", ha.URL)
}

func TestSelectHookDuplicatePrefixTieBreak(t *testing.T) {
	dup := []repository.Hook{
		{Prefix: "/note", URL: "https://zeta"},
		{Prefix: "/note", URL: "https://alpha"},
		{Prefix: "/note", URL: "https://mid"},
	}
	reversed := []repository.Hook{dup[2], dup[1], dup[0]}

	got, ok := SelectHook(dup, "/note buy milk")
	assert.True(t, ok)
	assert.Equal(t, "https://alpha", got.URL)

	got, _ = SelectHook(reversed, "/note buy milk")
	assert.Equal(t, "https://alpha", got.URL)
}

func TestSelectHookEmptySet(t *testing.T) {
	_, ok := SelectHook(nil, "/anything")
	assert.False(t, ok)
}

func TestSelectHookIgnoresEmptyPrefix(t *testing.T) {
	_, ok := SelectHook([]repository.Hook{{Prefix: "", URL: "https://catchall"}}, "/x")
	assert.False(t, ok)
}

func TestHelpText(t *testing.T) {
	hooks := []repository.Hook{
		{Prefix: "/note", URL: "https://n"},
		{Prefix: "/money", URL: "https://m"},
		{Prefix: "/note", URL: "https://n2"},
	}
	assert.Equal(t, "available commands:\n/money\n/note", helpText(hooks))
	assert.Equal(t, "no commands configured", helpText(nil))
}
