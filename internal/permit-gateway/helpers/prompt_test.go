package helpers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptLineDefaults(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, "def", promptLine(strings.NewReader("\n"), &out, "Label", "def"))
	assert.Equal(t, "Label [def]: ", out.String())

	assert.Equal(t, "typed", promptLine(strings.NewReader("  typed \n"), &out, "Label", "def"))
	assert.Equal(t, "def", promptLine(strings.NewReader(""), &out, "Label", "def"))
	assert.Equal(t, "no-newline", promptLine(strings.NewReader("no-newline"), &out, "Label", ""))
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "Sign?"))
	assert.True(t, confirm(strings.NewReader("YES\n"), &out, "Sign?"))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "Sign?"))
	assert.False(t, confirm(strings.NewReader("nope\n"), &out, "Sign?"))
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword([]byte("short")))
	assert.Error(t, ValidatePassword([]byte("has space in it")))
	assert.NoError(t, ValidatePassword([]byte("Correct#Horse9")))
}
