package specfile

import (
	"errors"
	"strings"
	"testing"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchApplyMethod(t *testing.T) {
	tests := []struct {
		name string
		txt  string
		want ApplyMethod
	}{
		{"per patch", sampleSpec, ApplyRPM},
		{"autosetup", "%prep\n%autosetup -n foo -S git\n", ApplyAutosetup},
		{"git am", "%prep\n%setup -q\ngit init\ngit am %{patches}\n", ApplyGitAm},
		{"nothing", "Name: foo\n", ApplyRPM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.txt).PatchApplyMethod())
		})
	}
}

func TestPatchFilenames(t *testing.T) {
	spec := newSample()
	assert.Equal(t, []string{"0001-fix-build.patch", "0002-fix-tests.patch"}, spec.PatchFilenames())
	assert.Equal(t, 2, spec.NPatches())
	assert.Empty(t, New("Name: foo\n").PatchFilenames())
}

func TestWipePatches(t *testing.T) {
	spec := newSample()
	require.NoError(t, spec.WipePatches())

	want := strings.Replace(sampleSpec, "Patch0001: 0001-fix-build.patch\nPatch0002: 0002-fix-tests.patch\n", "", 1)
	want = strings.Replace(want, "\n%patch0001 -p1\n%patch0002 -p1\n", "", 1)
	assert.Equal(t, want, spec.Text())
	assert.Equal(t, 0, spec.NPatches())
}

func TestSetNewPatches(t *testing.T) {
	t.Run("same series reproduces the document", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.SetNewPatches([]string{"0001-fix-build.patch", "0002-fix-tests.patch"}))
		assert.Equal(t, sampleSpec, spec.Text())
	})

	t.Run("reorder renumbers", func(t *testing.T) {
		spec := newSample()
		fns := []string{"0002-fix-tests.patch", "0001-fix-build.patch"}
		require.NoError(t, spec.SetNewPatches(fns))

		assert.Equal(t, fns, spec.PatchFilenames())
		assert.Contains(t, spec.Text(), "#\nPatch0001: 0002-fix-tests.patch\nPatch0002: 0001-fix-build.patch\n\nBuildArch:")
		assert.Contains(t, spec.Text(), "%setup -q -n foo-%{upstream_version}\n\n%patch0001 -p1\n%patch0002 -p1\n\n%build\n")

		once := spec.Text()
		require.NoError(t, spec.SetNewPatches(fns))
		assert.Equal(t, once, spec.Text())
	})

	t.Run("fewer patches", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.SetNewPatches([]string{"0003-new.patch"}))
		assert.Equal(t, []string{"0003-new.patch"}, spec.PatchFilenames())
		assert.NotContains(t, spec.Text(), "%patch0002")
		assert.Contains(t, spec.Text(), "\n%patch0001 -p1\n\n%build\n")
	})

	t.Run("empty series wipes", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.SetNewPatches(nil))
		assert.Equal(t, 0, spec.NPatches())
		assert.NotContains(t, spec.Text(), "%patch0")
	})
}

func TestSetNewPatchesAfterSources(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "blank line after sources",
			in:   "Name: a\nSource0: a.tar.gz\n\nBuildArch: noarch\n\n%prep\n%setup -q\n\n%build\n",
			want: "Name: a\nSource0: a.tar.gz\n\nPatch0001: a.patch\nPatch0002: b.patch\n\nBuildArch: noarch\n\n%prep\n%setup -q\n\n%patch0001 -p1\n%patch0002 -p1\n\n%build\n",
		},
		{
			name: "autosetup writes no apply lines",
			in:   "Source0: a\nBuildArch: noarch\n%prep\n%autosetup -p1\n",
			want: "Source0: a\n\nPatch0001: a.patch\nPatch0002: b.patch\n\nBuildArch: noarch\n%prep\n%autosetup -p1\n",
		},
		{
			name: "git am",
			in:   "Source0: a\n\n%prep\n%setup -q\ngit am %{patches}\n",
			want: "Source0: a\n\nPatch0001: a.patch\nPatch0002: b.patch\n\n%prep\n%setup -q\ngit am %{patches}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := New(tt.in)
			require.NoError(t, spec.SetNewPatches([]string{"a.patch", "b.patch"}))
			assert.Equal(t, tt.want, spec.Text())
		})
	}
}

func TestSetNewPatchesFailureKeepsText(t *testing.T) {
	t.Run("missing setup", func(t *testing.T) {
		txt := "Source0: a\nPatch0001: x.patch\n"
		spec := New(txt)
		err := spec.SetNewPatches([]string{"y.patch"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, rerrors.ErrParse))
		assert.Contains(t, err.Error(), "no %setup line")
		assert.Equal(t, txt, spec.Text())
	})

	t.Run("missing sources", func(t *testing.T) {
		txt := "Name: a\n%prep\n%autosetup\n"
		spec := New(txt)
		err := spec.SetNewPatches([]string{"y.patch"})
		assert.True(t, errors.Is(err, rerrors.ErrParse))
		assert.Contains(t, err.Error(), "no magic comment block and no Source tag")
		assert.Equal(t, txt, spec.Text())
	})
}
