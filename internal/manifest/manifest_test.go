package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "Manifest-Version: 1.0\r\n" +
		"License-Agreement: wlp/lafiles/LA\r\n" +
		"License-Information: wlp/lafiles/\r\n" +
		" LI\r\n" +
		"\r\n" +
		"Name: com/example/\r\n" +
		"Sealed: true\r\n"

	m, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "1.0", m.Main.Get("manifest-version"))
	assert.Equal(t, "wlp/lafiles/LA", m.Main.Get("License-Agreement"))
	assert.Equal(t, "wlp/lafiles/LI", m.Main.Get("License-Information"))
	assert.Equal(t, "", m.Main.Get("IBM-License-Agreement"))
	require.Contains(t, m.Sections, "com/example/")
	assert.Equal(t, "true", m.Sections["com/example/"].Get("Sealed"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "leading continuation", input: " orphan\n"},
		{name: "no separator", input: "Manifest-Version 1.0\n"},
		{name: "section without name", input: "A: b\n\nSealed: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}
