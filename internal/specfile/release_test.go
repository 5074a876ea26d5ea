package specfile

import (
	"errors"
	"testing"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNumericPrefix(t *testing.T) {
	tests := []struct {
		in      string
		numeric string
		rest    string
	}{
		{"1.2.3", "1.2.3", ""},
		{"1%{?dist}", "1", "%{?dist}"},
		{"1.0rc1", "1", ".0rc1"},
		{"0.1%{?milestone}%{?dist}", "0.1", "%{?milestone}%{?dist}"},
		{"2.el9", "2", ".el9"},
		{"%{release}", "%{release}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			numeric, rest := SplitNumericPrefix(tt.in)
			assert.Equal(t, tt.numeric, numeric)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestDecomposeRelease(t *testing.T) {
	tests := []struct {
		in         string
		want       ReleaseParts
		recognized bool
	}{
		{"1%{?dist}", ReleaseParts{"1", "", "%{?dist}"}, true},
		{"1%{dist}", ReleaseParts{"1", "", "%{dist}"}, true},
		{"3", ReleaseParts{"3", "", ""}, true},
		{"0.1%{?milestone}%{?dist}", ReleaseParts{"0.1", "%{?milestone}", "%{?dist}"}, true},
		{"1.0rc1%{?dist}", ReleaseParts{"1", ".0rc1", "%{?dist}"}, true},
		{"2.el9", ReleaseParts{"2", ".el9", ""}, true},
		{"%{release}", ReleaseParts{"", "", "%{release}"}, false},
		{"1.fc39.1", ReleaseParts{"1", ".fc39", ".1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := DecomposeRelease(tt.in)
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.recognized, p.Recognized())
			assert.Equal(t, tt.in, p.String())
		})
	}
}

func TestBumpRelease(t *testing.T) {
	tests := []struct {
		name      string
		release   string
		milestone string
		index     string
		want      string
	}{
		{"default", "1%{?dist}", "", "", "2%{?dist}"},
		{"last numeric", "1.2.3", "", "LAST-NUMERIC", "1.2.4"},
		{"major keeps lower parts", "1.2.3", "", "MAJOR", "2.2.3"},
		{"minor lowercase", "1.2.3", "", "minor", "1.3.3"},
		{"patch", "1.2.3", "", "Patch", "1.2.4"},
		{"numeric index", "1.2.3", "", "2", "1.3.3"},
		{"explicit no-op", "5.whatever", "", "0", "5.whatever"},
		{"milestone placeholder", "0.1%{?milestone}%{?dist}", ".0rc2", "", "0.2%{?milestone}%{?dist}"},
		{"inline milestone dropped", "1.0rc1%{?dist}", "", "", "2%{?dist}"},
		{"index over inline milestone", "1.0rc1%{?dist}", "", "1", "2.0rc1%{?dist}"},
		{"double digits", "9%{?dist}", "", "", "10%{?dist}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BumpRelease(tt.release, tt.milestone, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBumpReleaseErrors(t *testing.T) {
	tests := []struct {
		name    string
		release string
		index   string
		reason  rerrors.BumpIndexReason
	}{
		{"not numeric part", "1.0rc1%{?dist}", "2", rerrors.BumpIndexNotNumeric},
		{"out of range", "1.2", "PATCH", rerrors.BumpIndexOutOfRange},
		{"garbage index", "1", "x", rerrors.BumpIndexInvalid},
		{"negative index", "1", "-1", rerrors.BumpIndexInvalid},
		{"macro release", "%{release}", "", rerrors.BumpIndexNotNumeric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BumpRelease(tt.release, "", tt.index)
			require.Error(t, err)
			assert.True(t, errors.Is(err, rerrors.ErrInvalidBumpIndex))
			assert.Equal(t, tt.reason, rerrors.BumpReason(err))
		})
	}
}

func TestSpecBumpRelease(t *testing.T) {
	t.Run("keeps milestone macro", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.BumpRelease("", ""))

		v, err := spec.GetTag("Release")
		require.NoError(t, err)
		assert.Equal(t, "0.2%{?milestone}%{?dist}", v)
		assert.Equal(t, ".0rc1", spec.GetMilestone())
	})

	t.Run("new milestone", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.BumpRelease(".0rc2", "MINOR"))

		v, err := spec.GetTag("Release")
		require.NoError(t, err)
		assert.Equal(t, "0.2%{?milestone}%{?dist}", v)
		assert.Equal(t, ".0rc2", spec.GetMilestone())
	})

	t.Run("no-op index", func(t *testing.T) {
		spec := newSample()
		require.NoError(t, spec.BumpRelease("", "0"))
		assert.Equal(t, sampleSpec, spec.Text())
	})

	t.Run("invalid index leaves text alone", func(t *testing.T) {
		spec := newSample()
		err := spec.BumpRelease("", "7")
		assert.Equal(t, rerrors.BumpIndexOutOfRange, rerrors.BumpReason(err))
		assert.Equal(t, sampleSpec, spec.Text())
	})
}

func TestSetRelease(t *testing.T) {
	spec := New("Name: foo\nRelease: 1\n")
	changed, err := spec.SetRelease("2", "", nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Name: foo\nRelease: 2%{?dist}\n", spec.Text())

	postfix := "%{?dist}.1"
	_, err = spec.SetRelease("3", ".0b1", &postfix)
	require.NoError(t, err)
	assert.Equal(t, "%global milestone .0b1\nName: foo\nRelease: 3%{?milestone}%{?dist}.1\n", spec.Text())

	_, err = New("Name: foo\n").SetRelease("1", "", nil)
	assert.True(t, errors.Is(err, rerrors.ErrParse))
}

func TestRecognizedRelease(t *testing.T) {
	ok, err := newSample().RecognizedRelease()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = New("Release: %{release_base}.1\n").RecognizedRelease()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetVR(t *testing.T) {
	spec := newSample(withBuiltin())

	tests := []struct {
		policy EpochPolicy
		want   string
	}{
		{EpochDefault, "1:1.2.0-0.1.0rc1"},
		{EpochAlways, "1:1.2.0-0.1.0rc1"},
		{EpochOmit, "1.2.0-0.1.0rc1"},
	}
	for _, tt := range tests {
		vr, err := spec.GetVR(tt.policy)
		require.NoError(t, err)
		assert.Equal(t, tt.want, vr)
	}

	nvr, err := spec.GetNVR(EpochDefault)
	require.NoError(t, err)
	assert.Equal(t, "python-foo-1:1.2.0-0.1.0rc1", nvr)
}

func TestGetVRWithoutEpoch(t *testing.T) {
	spec := New("Name: foo\nVersion: 2\nRelease: 3%{?dist}\n")

	vr, err := spec.GetVR(EpochDefault)
	require.NoError(t, err)
	assert.Equal(t, "2-3", vr)

	vr, err = spec.GetVR(EpochAlways)
	require.NoError(t, err)
	assert.Equal(t, "0:2-3", vr)
}

func TestGetVRNeedsOracleForMacros(t *testing.T) {
	_, err := newSample().GetVR(EpochDefault)
	assert.True(t, errors.Is(err, rerrors.ErrOracleUnavailable))
}
