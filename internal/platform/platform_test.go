package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSet(t *testing.T) {
	t.Parallel()

	set, err := ParseSet([]string{"windows", "HTML5", " linux "})
	require.NoError(t, err)
	require.True(t, set.Has(Windows))
	require.True(t, set.Has(HTML5))
	require.True(t, set.Has(Linux))
	require.False(t, set.Has(Android))

	_, err = ParseSet([]string{"windows", "playstation"})
	require.ErrorContains(t, err, `unknown platform "playstation"`)

	_, err = ParseSet(nil)
	require.ErrorContains(t, err, "no platforms selected")
}

func TestSetAddIsIdempotent(t *testing.T) {
	t.Parallel()

	var set Set
	set = set.Add(Windows)
	set = set.Add(Windows)
	require.Len(t, set, 1)
}

func TestArchSetTokens(t *testing.T) {
	t.Parallel()

	require.Empty(t, ArchSet{}.Tokens())
	require.Equal(t, []string{"x86"}, ArchSet{X86: true}.Tokens())
	require.Equal(t, []string{"x64"}, ArchSet{X64: true}.Tokens())
	// 32-bit always sorts before 64-bit in folder names.
	require.Equal(t, []string{"x86", "x64"}, ArchSet{X86: true, X64: true}.Tokens())
}

func TestParseArchSet(t *testing.T) {
	t.Parallel()

	a, err := ParseArchSet([]string{"x64", "32-bit"})
	require.NoError(t, err)
	require.True(t, a.X86)
	require.True(t, a.X64)

	_, err = ParseArchSet([]string{"arm"})
	require.ErrorContains(t, err, `unknown architecture "arm"`)

	a, err = ParseArchSet(nil)
	require.NoError(t, err)
	require.True(t, a.IsZero())
}

func TestAPKTypeNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Google", APKGoogle.Name())
	require.Equal(t, "Amazon", APKAmazon.Name())
	require.Equal(t, "Ouya", APKOuya.Name())
	require.False(t, APKType(3).Valid())
	require.True(t, APKAmazon.Valid())
}
