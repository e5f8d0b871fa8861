package credentials_test

import (
	"encoding/hex"
	"testing"

	credentials "github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaqueToken(t *testing.T) {
	token, err := credentials.NewOpaqueToken()
	require.NoError(t, err)

	raw, err := hex.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := credentials.NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
