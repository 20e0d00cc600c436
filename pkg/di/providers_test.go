package di_test

import (
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-dev/flotilla/pkg/di"
	"github.com/flotilla-dev/flotilla/pkg/utils/timer"
)

func TestNewInjectorProvidesTimer(t *testing.T) {
	t.Parallel()

	injector := di.NewInjector()

	tmr, err := do.Invoke[timer.Timer](injector)

	require.NoError(t, err)
	assert.NotNil(t, tmr)
}
