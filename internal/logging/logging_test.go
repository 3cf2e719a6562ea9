package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	prod, err := New(false)
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, prod.Core().Enabled(zapcore.InfoLevel))

	dev, err := New(true)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	assert.NotNil(t, Must(false))
}
