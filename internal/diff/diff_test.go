package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int, replace map[int]string) []byte {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if r, ok := replace[i]; ok {
			b.WriteString(r)
		} else {
			b.WriteString(strings.Repeat("x", i))
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func TestDiffSingleChange(t *testing.T) {
	res, err := NewEngine(1).Diff([]byte("a\nb\nc\nd\ne\n"), []byte("a\nb\nX\nd\ne\n"))
	require.NoError(t, err)

	require.Len(t, res.Hunks, 1)
	assert.Equal(t, 1, res.Stats.Additions)
	assert.Equal(t, 1, res.Stats.Deletions)
	assert.Equal(t, 2, res.Stats.Changes)
	assert.Equal(t, "@@ -2,3 +2,3 @@\n b\n-c\n+X\n d\n", res.Format())
	assert.Equal(t, "--- a/foo.spec\n+++ b/foo.spec\n@@ -2,3 +2,3 @@\n b\n-c\n+X\n d\n", res.Unified("a/foo.spec", "b/foo.spec"))
}

func TestDiffIdentical(t *testing.T) {
	res, err := NewEngine(3).Diff([]byte("a\nb\n"), []byte("a\nb\n"))
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, "", res.Unified("a", "b"))
}

func TestDiffFromEmpty(t *testing.T) {
	res, err := NewEngine(3).Diff(nil, []byte("a\n"))
	require.NoError(t, err)
	assert.Equal(t, "@@ -0,0 +1,1 @@\n+a\n", res.Format())
}

func TestDiffHunkSplitting(t *testing.T) {
	oldContent := numbered(10, nil)
	newContent := numbered(10, map[int]string{2: "two", 9: "nine"})

	t.Run("distant changes", func(t *testing.T) {
		res, err := NewEngine(1).Diff(oldContent, newContent)
		require.NoError(t, err)
		require.Len(t, res.Hunks, 2)

		assert.Equal(t, 1, res.Hunks[0].OldStart)
		assert.Equal(t, 3, res.Hunks[0].OldLines)
		assert.Equal(t, 8, res.Hunks[1].OldStart)
		assert.Equal(t, 3, res.Hunks[1].OldLines)
		assert.Equal(t, 8, res.Hunks[1].NewStart)
	})

	t.Run("close changes merge", func(t *testing.T) {
		res, err := NewEngine(3).Diff(oldContent, newContent)
		require.NoError(t, err)
		require.Len(t, res.Hunks, 1)
		assert.Equal(t, 1, res.Hunks[0].OldStart)
		assert.Equal(t, 10, res.Hunks[0].OldLines)
		assert.Equal(t, 10, res.Hunks[0].NewLines)
	})
}

func TestDiffInsertion(t *testing.T) {
	res, err := NewEngine(1).Diff(
		[]byte("Source0: a\n\nBuildArch: noarch\n"),
		[]byte("Source0: a\n\nPatch0001: x.patch\n\nBuildArch: noarch\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Additions)
	assert.Equal(t, 0, res.Stats.Deletions)
	assert.Contains(t, res.Format(), "+Patch0001: x.patch\n")
}
