package errors

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "publish_failed",
				Message: "publish to ebay failed",
				Err:     errors.New("upstream timeout"),
			},
			expected: "publish to ebay failed: upstream timeout",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_state",
				Message: "job is not retryable",
			},
			expected: "job is not retryable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	original := errors.New("original error")
	err := NewDomainError("test", "test message", original)

	assert.Equal(t, original, err.Unwrap())
	assert.ErrorIs(t, err, original)
}

func TestHTTPError(t *testing.T) {
	err := fmt.Errorf("create listing: %w", NewHTTPError(503))

	assert.EqualError(t, err, "create listing: http error: 503")
	assert.True(t, IsHTTPStatus(err, 503))
	assert.False(t, IsHTTPStatus(err, 401))
	assert.False(t, IsHTTPStatus(errors.New("plain"), 503))
}

func TestNetworkError_MatchesKindAndCause(t *testing.T) {
	cause := &net.DNSError{Err: "no such host", Name: "api.example.com"}
	err := NetworkError(cause)

	assert.ErrorIs(t, err, ErrNetwork)
	var dnsErr *net.DNSError
	assert.ErrorAs(t, err, &dnsErr)
	assert.Contains(t, err.Error(), "no such host")
	assert.NotErrorIs(t, err, ErrDecoding)
}

func TestDecodingError_DistinctFromNetwork(t *testing.T) {
	err := DecodingError(errors.New("unexpected EOF"))

	assert.ErrorIs(t, err, ErrDecoding)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "failed to decode response: unexpected EOF", err.Error())
}

func TestInvalidResponse_NilCause(t *testing.T) {
	err := InvalidResponse(nil)

	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, ErrInvalidResponse.Error(), err.Error())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("title", "cannot be empty")

	assert.Equal(t, "validation failed for field title: cannot be empty", err.Error())
	assert.ErrorIs(t, err, ErrValidationFailed)
}
