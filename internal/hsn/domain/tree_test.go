package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id int64, code string, parent int64, level int) ClassificationCode {
	c := ClassificationCode{ID: snowflake.ID(id), Code: code, Level: level, Active: true}
	if parent != 0 {
		p := snowflake.ID(parent)
		c.ParentID = &p
	}
	return c
}

func cementTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree([]ClassificationCode{
		node(1, "25", 0, 1),
		node(2, "2523", 1, 2),
		node(3, "252329", 2, 3),
		node(4, "25232910", 3, 4),
		node(5, "84", 0, 1),
		node(6, "8471", 5, 2),
	})
	require.Empty(t, tree.Problems())
	return tree
}

func TestTreeResolvePath(t *testing.T) {
	tree := cementTree(t)

	path, err := tree.ResolvePath("25232910")
	require.NoError(t, err)
	assert.Equal(t, []string{"25", "2523", "252329", "25232910"}, path)

	path, err = tree.ResolvePath("84")
	require.NoError(t, err)
	assert.Equal(t, []string{"84"}, path)

	full, err := tree.FullPath("2523")
	require.NoError(t, err)
	assert.Equal(t, "25 > 2523", full)

	_, err = tree.ResolvePath("9999")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestTreeIsDescendantOf(t *testing.T) {
	tree := cementTree(t)

	ok, err := tree.IsDescendantOf("25232910", "25")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.IsDescendantOf("2523", "2523")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tree.IsDescendantOf("8471", "25")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tree.IsDescendantOf("25", "2523")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = tree.IsDescendantOf("2523", "0000")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestNewTreeFlagsBrokenRows(t *testing.T) {
	cases := []struct {
		name   string
		codes  []ClassificationCode
		lookup string
		want   error
	}{
		{
			name:   "missing parent",
			codes:  []ClassificationCode{node(1, "25", 0, 1), node(2, "2523", 99, 2)},
			lookup: "2523",
			want:   ErrBrokenParent,
		},
		{
			name:   "cycle",
			codes:  []ClassificationCode{node(1, "25", 2, 2), node(2, "2523", 1, 2)},
			lookup: "25",
			want:   ErrCycle,
		},
		{
			name:   "level mismatch",
			codes:  []ClassificationCode{node(1, "25", 0, 1), node(2, "2523", 1, 3)},
			lookup: "2523",
			want:   ErrLevelMismatch,
		},
		{
			name:   "duplicate code",
			codes:  []ClassificationCode{node(1, "25", 0, 1), node(2, "25", 0, 1)},
			lookup: "25",
			want:   ErrDuplicateCode,
		},
		{
			name:   "blank code",
			codes:  []ClassificationCode{node(1, "  ", 0, 1)},
			lookup: "",
			want:   ErrCodeNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree := NewTree(tc.codes)
			assert.NotEmpty(t, tree.Problems())

			_, err := tree.ResolvePath(tc.lookup)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTreeIsolatesBrokenRows(t *testing.T) {
	tree := NewTree([]ClassificationCode{
		node(1, "25", 0, 1),
		node(2, "2523", 1, 2),
		node(3, "9999", 42, 2),
		node(4, "999911", 3, 3),
		node(5, "84", 0, 1),
		node(6, "8471", 5, 2),
	})
	require.Len(t, tree.Problems(), 2)
	assert.Equal(t, 6, tree.Len())

	full, err := tree.FullPath("2523")
	require.NoError(t, err)
	assert.Equal(t, "25 > 2523", full)

	_, err = tree.Require("2523", time.Now())
	assert.NoError(t, err)

	_, err = tree.Require("9999", time.Now())
	assert.ErrorIs(t, err, ErrBrokenParent)

	// a child inherits its parent's breakage
	_, err = tree.Require("999911", time.Now())
	assert.ErrorIs(t, err, ErrBrokenParent)

	ok, err := tree.IsDescendantOf("8471", "84")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = tree.IsDescendantOf("999911", "9999")
	assert.ErrorIs(t, err, ErrBrokenParent)

	_, ok = tree.Lookup("9999")
	assert.True(t, ok)
}

func TestTreeRequireHonoursValidity(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	windowed := node(2, "2523", 1, 2)
	windowed.EffectiveFrom = &from
	windowed.EffectiveTo = &to
	inactive := node(3, "2524", 1, 2)
	inactive.Active = false

	tree := NewTree([]ClassificationCode{node(1, "25", 0, 1), windowed, inactive})
	require.Empty(t, tree.Problems())

	_, err := tree.Require("2523", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)

	_, err = tree.Require("2523", to)
	assert.ErrorIs(t, err, ErrCodeInactive)

	_, err = tree.Require("2523", from.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrCodeInactive)

	_, err = tree.Require("2524", from)
	assert.ErrorIs(t, err, ErrCodeInactive)

	_, err = tree.Require("2599", from)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}
