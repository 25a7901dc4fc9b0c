package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParser_RegistersAllCommands(t *testing.T) {
	parser, globals, cmds := buildParser("test")
	require.NotNil(t, parser)
	require.NotNil(t, globals)
	require.NotNil(t, cmds)

	for _, name := range []string{"extract", "summary", "expected", "ttest", "export", "status", "purge"} {
		assert.NotNil(t, parser.Command.Find(name), "command %q not registered", name)
	}
}

func TestRunWithArgs_Version(t *testing.T) {
	out := captureOutput(t, func() {
		err := RunWithArgs("1.2.3", []string{"--version"})
		require.NoError(t, err)
	})
	assert.Contains(t, out, "pupilstat 1.2.3")
}

func TestRunWithArgs_VersionBeforeCommand(t *testing.T) {
	out := captureOutput(t, func() {
		err := RunWithArgs("0.9.0", []string{"status", "--version"})
		require.NoError(t, err)
	})
	assert.Contains(t, out, "pupilstat 0.9.0")
}

func TestRunWithArgs_UnknownCommand(t *testing.T) {
	err := RunWithArgs("test", []string{"frobnicate"})
	require.Error(t, err)
}

func TestRunWithArgs_TTestRequiresAlpha(t *testing.T) {
	err := RunWithArgs("test", []string{"ttest"})
	require.Error(t, err)
}
