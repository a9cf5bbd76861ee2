package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInfo(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, getVersion())
	assert.NotEmpty(t, getCommit())
	assert.NotEmpty(t, getDate())
	assert.LessOrEqual(t, len(getCommit()), len("unknown"))
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "langtable version "+getVersion())
	assert.Contains(t, out, "commit:")
	assert.Contains(t, out, "built:")
}
