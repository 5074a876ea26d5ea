package specfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
	"github.com/jcapiitao/rdopkg/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `%global milestone .0rc1
%{!?upstream_version: %global upstream_version %{version}%{?milestone}}

Name:           python-foo
Epoch:          1
Version:        1.2.0
Release:        0.1%{?milestone}%{?dist}
Summary:        Foo library

License:        ASL 2.0
URL:            https://example.com/foo
Source0:        https://example.com/foo/foo-%{upstream_version}.tar.gz

#
# patches_base=1.2.0+2
#
Patch0001: 0001-fix-build.patch
Patch0002: 0002-fix-tests.patch

BuildArch:      noarch
BuildRequires:  python3-devel

%description
Foo.

%package -n python3-foo
Summary:        Foo library
Requires:       python3-bar
%if 0%{?with_doc}
Requires:       python3-sphinx
%endif

%description -n python3-foo
Foo.

%package doc
Summary:        Docs
Requires:       python3-foo = %{epoch}:%{version}-%{release}

%description doc
Docs.

%prep
%setup -q -n foo-%{upstream_version}

%patch0001 -p1
%patch0002 -p1

%build
%py3_build

%install
%py3_install

%files -n python3-foo
%license LICENSE

%changelog
* Mon Jan 01 2024 Jane Doe <jane@example.com> 1:1.2.0-0.1.0rc1
- Update to 1.2.0.0rc1
- Drop old patch

* Sun Dec 31 2023 Jane Doe <jane@example.com> 1:1.1.0-1
- Update to 1.1.0
`

func newSample(opts ...Option) *Spec {
	return New(sampleSpec, opts...)
}

func withBuiltin() Option {
	return WithOracle(oracle.NewBuiltin())
}

func writeSpec(t *testing.T, txt string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python-foo.spec")
	require.NoError(t, os.WriteFile(path, []byte(txt), 0644))
	return path
}

func TestOpenSaveRoundTrip(t *testing.T) {
	path := writeSpec(t, sampleSpec)

	spec, err := Open(path)
	require.NoError(t, err)
	assert.False(t, spec.Dirty())
	assert.Equal(t, sampleSpec, spec.Text())

	require.NoError(t, spec.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleSpec, string(data))
}

func TestSaveWritesEdits(t *testing.T) {
	path := writeSpec(t, sampleSpec)

	spec, err := Open(path)
	require.NoError(t, err)
	require.True(t, spec.SetTag("Version", "1.3.0"))
	assert.True(t, spec.Dirty())

	require.NoError(t, spec.Save())
	assert.False(t, spec.Dirty())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Version:        1.3.0\n")
}

func TestSaveErrors(t *testing.T) {
	t.Run("no path", func(t *testing.T) {
		err := New("Name: foo\n").Save()
		assert.True(t, errors.Is(err, rerrors.ErrInvalidSaveTarget))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing.spec"))
		assert.True(t, errors.Is(err, rerrors.ErrSpecFileNotFound))
	})
}

func TestOpenDefinesSourcedir(t *testing.T) {
	path := writeSpec(t, sampleSpec)
	spec, err := Open(path)
	require.NoError(t, err)

	v, ok := spec.MacroEnv().Lookup("_sourcedir")
	require.True(t, ok)
	assert.Equal(t, filepath.Dir(path), v)
}

func TestHasMacros(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"%{?dist}", true},
		{"%name", true},
		{"a%{version}", true},
		{"1.2.3", false},
		{"100%", false},
		{"%%{escaped}", false},
		{"50% off", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, HasMacros(tt.in))
		})
	}
}

func TestGetTag(t *testing.T) {
	spec := newSample()

	v, err := spec.GetTag("Version")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v)

	v, err = spec.GetTag("Summary")
	require.NoError(t, err)
	assert.Equal(t, "Foo library", v)

	_, err = spec.GetTag("Vendor")
	assert.True(t, errors.Is(err, rerrors.ErrParse))
	assert.Contains(t, err.Error(), "Vendor tag not found")

	assert.Equal(t, "ACME", spec.GetTagDefault("Vendor", "ACME"))
	assert.Equal(t, "noarch", spec.GetTagDefault("BuildArch", "x86_64"))

	_, ok := spec.LookupTag("Vendor")
	assert.False(t, ok)
}

func TestGetTagIgnoresNonPreambleSections(t *testing.T) {
	spec := New("Name: foo\n\n%description\nNote: not a tag\n")
	_, ok := spec.LookupTag("Note")
	assert.False(t, ok)
}

func TestGetTagExpanded(t *testing.T) {
	t.Run("literal value skips the oracle", func(t *testing.T) {
		v, err := newSample().GetTagExpanded("Version")
		require.NoError(t, err)
		assert.Equal(t, "1.2.0", v)
	})

	t.Run("macro value without oracle", func(t *testing.T) {
		_, err := newSample().GetTagExpanded("Release")
		assert.True(t, errors.Is(err, rerrors.ErrOracleUnavailable))
	})

	t.Run("macro value with oracle", func(t *testing.T) {
		v, err := newSample(withBuiltin()).GetTagExpanded("Release")
		require.NoError(t, err)
		assert.Equal(t, "0.1.0rc1", v)
	})

	t.Run("explicit define", func(t *testing.T) {
		v, err := newSample(withBuiltin(), WithDefine("dist", ".el9")).GetTagExpanded("Release")
		require.NoError(t, err)
		assert.Equal(t, "0.1.0rc1.el9", v)
	})
}

func TestSetTag(t *testing.T) {
	spec := newSample()

	require.True(t, spec.SetTag("Version", "1.3.0"))
	once := spec.Text()
	require.True(t, spec.SetTag("Version", "1.3.0"))
	assert.Equal(t, once, spec.Text())

	assert.Contains(t, once, "\nVersion:        1.3.0\n")
	assert.Equal(t, strings.Replace(sampleSpec, "1.2.0\n", "1.3.0\n", 1), once)

	assert.False(t, spec.SetTag("Vendor", "ACME"))
	assert.Equal(t, once, spec.Text())
}

func TestSetTagToCurrentValueIsNoop(t *testing.T) {
	spec := New("Name:\tfoo  \nVersion: 1\n")
	require.True(t, spec.SetTag("Name", "foo"))
	assert.Equal(t, "Name:\tfoo  \nVersion: 1\n", spec.Text())
	assert.True(t, spec.Dirty())
}

func TestCRLFLineEndings(t *testing.T) {
	spec := New("Name: foo\r\nVersion: 1.0\r\n\r\n%global milestone .0rc1\r\n")

	v, err := spec.GetTag("Version")
	require.NoError(t, err)
	assert.Equal(t, "1.0", v)

	m, ok := spec.GetMacro("milestone")
	require.True(t, ok)
	assert.Equal(t, ".0rc1", m)

	require.True(t, spec.SetTag("Version", "2.0"))
	assert.Equal(t, "Name: foo\r\nVersion: 2.0\r\n\r\n%global milestone .0rc1\r\n", spec.Text())

	l := scan("Name: foo\r")
	assert.False(t, l.endsWithNewline(0))
	assert.Equal(t, kindBlank, scan("\r\nName: foo\r\n").lines[0].kind)
}

func TestTagAlignWS(t *testing.T) {
	spec := newSample()
	assert.Equal(t, strings.Repeat(" ", 11), spec.TagAlignWS("Name"))
	assert.Equal(t, "  ", spec.TagAlignWS("BuildRequires:"))
	assert.Equal(t, "", spec.TagAlignWS("Vendor"))
}

func TestSourceURLs(t *testing.T) {
	spec := newSample(withBuiltin(), WithDefine("upstream_version", "1.2.0.0rc1"))

	urls, err := spec.SourceURLs()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/foo/foo-1.2.0.0rc1.tar.gz"}, urls)

	fns, err := spec.SourceFilenames()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-1.2.0.0rc1.tar.gz"}, fns)

	_, err = New("Name: foo\n").SourceURLs()
	assert.True(t, errors.Is(err, rerrors.ErrParse))

	_, err = New("Name: foo\nSource1: bar.tar.gz\n").SourceURLs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Source0 not found")
}

func TestMacros(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		v, ok := newSample().GetMacro("milestone")
		require.True(t, ok)
		assert.Equal(t, ".0rc1", v)

		_, ok = newSample().GetMacro("commit")
		assert.False(t, ok)
	})

	t.Run("replace", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.SetMacro("milestone", ".0rc2"))
		assert.True(t, strings.HasPrefix(spec.Text(), "%global milestone .0rc2\n%{!?"))
	})

	t.Run("create", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.SetMacro("commit", "abc123"))
		assert.Equal(t, "%global commit abc123\n"+sampleSpec, spec.Text())
	})

	t.Run("remove", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.SetMilestone(""))
		assert.Equal(t, strings.TrimPrefix(sampleSpec, "%global milestone .0rc1\n"), spec.Text())
		assert.Equal(t, "", spec.GetMilestone())
	})

	t.Run("self referencing milestone reads empty", func(t *testing.T) {
		spec := New("%global milestone %{?milestone}\nName: foo\n")
		assert.Equal(t, "", spec.GetMilestone())
	})

	t.Run("commit ref", func(t *testing.T) {
		spec := New("%global commit 0123abc\n%global shortcommit %(c=%{commit}; echo ${c:0:7})\n")
		require.NoError(t, spec.SetCommitRef("fedcba9"))
		assert.Equal(t, "%global commit fedcba9\n%global shortcommit %(c=%{commit}; echo ${c:0:7})\n", spec.Text())
	})

	t.Run("expanded needs oracle", func(t *testing.T) {
		_, err := newSample().GetMacroExpanded("milestone")
		assert.True(t, errors.Is(err, rerrors.ErrOracleUnavailable))

		v, err := newSample(withBuiltin()).GetMacroExpanded("milestone")
		require.NoError(t, err)
		assert.Equal(t, ".0rc1", v)
	})
}

func TestMacroEnvIsPerDocument(t *testing.T) {
	a := New("%global pypi_name alpha\nName: python-%{pypi_name}\n", withBuiltin())
	b := New("%global pypi_name beta\nName: python-%{pypi_name}\n", withBuiltin())

	na, err := a.Name()
	require.NoError(t, err)
	nb, err := b.Name()
	require.NoError(t, err)
	nb2, err := b.Name()
	require.NoError(t, err)

	assert.Equal(t, "python-alpha", na)
	assert.Equal(t, "python-beta", nb)
	assert.Equal(t, nb, nb2)
}

func TestScanConditionalDepth(t *testing.T) {
	l := scan("Name: a\n%if 0%{?rhel}\nRequires: b\n%if 1\nRequires: c\n%endif\n%else\nRequires: d\n%endif\nRequires: e")

	depths := make([]int, len(l.lines))
	for i, ln := range l.lines {
		depths[i] = ln.depth
	}
	assert.Equal(t, []int{0, 0, 1, 1, 2, 1, 0, 1, 0, 0}, depths)
	assert.Equal(t, kindTag, l.lines[9].kind)
	assert.False(t, l.endsWithNewline(9))
}

func TestApplyEditsRejectsOverlap(t *testing.T) {
	_, err := applyEdits("abcdef", []edit{{start: 1, end: 4, text: "x"}, {start: 2, end: 3, text: "y"}})
	assert.Error(t, err)

	out, err := applyEdits("abcdef", []edit{{start: 4, end: 6, text: "Z"}, insertAt(0, ">")})
	require.NoError(t, err)
	assert.Equal(t, ">abcdZ", out)
}
