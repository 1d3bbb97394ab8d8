package ui

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestReporterPlain(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewReporter(&out, &errOut, ColorNever)

	r.Step("Extracting under '%s'", "app")
	r.Blank()
	r.Warn("Failed to decompile: %v", "boom")

	assert.Equal(t, "[+] Extracting under 'app'\n\n", out.String())
	assert.Equal(t, "[!] Failed to decompile: boom\n", errOut.String())
}

func TestReporterColor(t *testing.T) {
	var out bytes.Buffer
	NewReporter(&out, &out, ColorAlways).Step("Decompiling jar files")

	assert.Contains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "[+] Decompiling jar files")
}

func TestAutoModeWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, termenv.Ascii, profileFor(&out, ColorAuto))

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, profileFor(&out, ColorAuto))
	assert.Equal(t, termenv.ANSI, profileFor(&out, ColorAlways))
}

func TestDiscard(t *testing.T) {
	r := Discard()
	r.Step("nothing")
	r.Warn("nothing")
}
