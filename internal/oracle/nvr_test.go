package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNVR(t *testing.T) {
	tests := []struct {
		in   string
		want NVR
	}{
		{"1.0", NVR{Version: "1.0"}},
		{"1.0-1.el8", NVR{Version: "1.0", Release: "1.el8"}},
		{"2:1.0-1", NVR{Epoch: "2", Version: "1.0", Release: "1"}},
		{"python-foo-1.0-1", NVR{Name: "python-foo", Version: "1.0", Release: "1"}},
		{"foo-3:1.0-1", NVR{Name: "foo", Epoch: "3", Version: "1.0", Release: "1"}},
		{"1:foo-1.0-1", NVR{Name: "foo", Epoch: "1", Version: "1.0", Release: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNVR(tt.in))
		})
	}
}

func TestNVREVR(t *testing.T) {
	assert.Equal(t, "1:2.0-3", NVR{Epoch: "1", Version: "2.0", Release: "3"}.EVR())
	assert.Equal(t, "2.0", NVR{Version: "2.0"}.EVR())
}

func TestSplitFilename(t *testing.T) {
	n, v, r, e, a := SplitFilename("foo-1.0-1.i386.rpm")
	assert.Equal(t, []string{"foo", "1.0", "1", "", "i386"}, []string{n, v, r, e, a})

	n, v, r, e, a = SplitFilename("1:bar-9-123a.ia64.rpm")
	assert.Equal(t, []string{"bar", "9", "123a", "1", "ia64"}, []string{n, v, r, e, a})
}

func TestStringToVersion(t *testing.T) {
	e, v, r := StringToVersion("1.2-3")
	assert.Equal(t, []string{"0", "1.2", "3"}, []string{e, v, r})

	e, v, r = StringToVersion("4:1.2-3")
	assert.Equal(t, []string{"4", "1.2", "3"}, []string{e, v, r})
}

func TestNVRToVersion(t *testing.T) {
	assert.Equal(t, "2.1.0", NVRToVersion("python-nova-2.1.0-1.el9"))
}
