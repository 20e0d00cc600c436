package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSafelyReturnsRunnerExitCode(t *testing.T) {
	t.Parallel()

	var errOut bytes.Buffer

	exitCode := runSafely(nil, func(_ []string) int { return 3 }, &errOut)

	assert.Equal(t, 3, exitCode)
	assert.Empty(t, errOut.String())
}

func TestRunSafelyRecoversPanic(t *testing.T) {
	t.Parallel()

	var errOut bytes.Buffer

	exitCode := runSafely(nil, func(_ []string) int { panic("boom") }, &errOut)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, errOut.String(), "panic recovered: boom")
}
