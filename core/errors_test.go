package core_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func TestIsShutdown(t *testing.T) {
	err := core.NewShutdownError("connection lost")
	assert.True(t, core.IsShutdown(err))

	// wrapping along the way must not hide the signal
	assert.True(t, core.IsShutdown(errors.Wrap(err, "finding user by ID")))

	assert.False(t, core.IsShutdown(errors.New("boom")))
	assert.False(t, core.IsShutdown(nil))
}
