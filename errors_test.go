package credentials_test

import (
	"errors"
	"testing"

	credentials "github.com/goliatone/go-credentials"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured token expired error",
			err:      credentials.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "Legacy token expired error (string match)",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      credentials.ErrAccountNotFound,
			expected: false,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, credentials.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured malformed error",
			err:      credentials.ErrTokenMalformed,
			expected: true,
		},
		{
			name:     "Legacy malformed error (string match)",
			err:      errors.New("token is malformed"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      credentials.ErrTokenExpired,
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, credentials.IsMalformedError(tt.err))
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("ErrInvalidCredentials", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, credentials.ErrInvalidCredentials.Category)
		assert.Equal(t, credentials.TextCodeInvalidCredentials, credentials.ErrInvalidCredentials.TextCode)
	})

	t.Run("ErrEmailTaken", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, credentials.ErrEmailTaken.Category)
		assert.Equal(t, credentials.TextCodeEmailTaken, credentials.ErrEmailTaken.TextCode)
	})

	t.Run("ErrTooManyLoginAttempts", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryRateLimit, credentials.ErrTooManyLoginAttempts.Category)
		assert.Equal(t, credentials.TextCodeTooManyLoginAttempts, credentials.ErrTooManyLoginAttempts.TextCode)
	})

	t.Run("ErrAccountNotFound is recognized as not found", func(t *testing.T) {
		assert.True(t, goerrors.IsNotFound(credentials.ErrAccountNotFound))
	})
}
