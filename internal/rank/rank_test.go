package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	key   string
	title string
}

func byKey(i item) string { return i.key }

func TestDedupe_StableFirstWins(t *testing.T) {
	in := []item{{key: "u1", title: "first"}, {key: "u2"}, {key: "u1", title: "second"}}
	got := Dedupe(in, byKey)
	assert.Equal(t, []item{{key: "u1", title: "first"}, {key: "u2"}}, got)
}

func TestDedupe_DoesNotMutateInput(t *testing.T) {
	in := []item{{key: "a"}, {key: "a"}, {key: "b"}}
	_ = Dedupe(in, byKey)
	assert.Equal(t, []item{{key: "a"}, {key: "a"}, {key: "b"}}, in)
}

func TestDedupe_NilAndEmpty(t *testing.T) {
	assert.Nil(t, Dedupe[item, string](nil, byKey))
	assert.Empty(t, Dedupe([]item{}, byKey))
}

func TestDedupe_EmptyKeysCollapse(t *testing.T) {
	got := Dedupe([]item{{title: "x"}, {title: "y"}}, byKey)
	assert.Len(t, got, 1)
	assert.Equal(t, "x", got[0].title)
}

func TestTake(t *testing.T) {
	in := []int{1, 2, 3, 4}
	assert.Equal(t, []int{1, 2}, Take(in, 2))
	assert.Equal(t, in, Take(in, 10))
	assert.Equal(t, in, Take(in, 0))
	assert.Equal(t, in, Take(in, -1))
}

func TestTitleOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Senior Go Engineer", "go engineer", true},
		{"Go Engineer", "Senior  Go   Engineer (Remote)", true},
		{"Backend Developer", "Frontend Developer", false},
		{"", "anything", false},
		{"Data Scientist", "DATA SCIENTIST", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleOverlap(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestDedupeFunc_TitleOverlap(t *testing.T) {
	in := []item{
		{title: "Senior Go Engineer"},
		{title: "Go Engineer"},
		{title: "Rust Engineer"},
		{title: "Senior Go Engineer - Platform"},
	}
	got := DedupeFunc(in, func(a, b item) bool { return TitleOverlap(a.title, b.title) })
	assert.Equal(t, []item{{title: "Senior Go Engineer"}, {title: "Rust Engineer"}}, got)
}

func TestUnion(t *testing.T) {
	assert.Equal(t, []string{"Go", "Rust"}, Union([]string{"Go", "Rust"}, []string{"Go"}))
	assert.Equal(t, []string{"Go", "go"}, Union([]string{"Go"}, []string{"go"}), "case-sensitive")
	assert.Equal(t, []string{"a", "b"}, Union(nil, []string{"a", "b", "a"}))
	assert.Nil(t, Union(nil, nil))
}
