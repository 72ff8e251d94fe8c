package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoginCommand(t *testing.T) {
	cmd := NewLoginCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "login", cmd.Use)
	assert.Equal(t, "Store a wirechat token for future sessions", cmd.Short)

	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.True(t, cmd.HasFlags())
	assert.NotNil(t, cmd.Flags().Lookup("user"))
	assert.NotNil(t, cmd.Flags().Lookup("name"))
	assert.NotNil(t, cmd.Flags().Lookup("admin"))
}
