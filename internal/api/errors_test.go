package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	transport := fmt.Errorf("loading page 2: %w", &TransportError{Op: "fetching tenders", Err: context.Canceled})
	server := fmt.Errorf("loading page 2: %w", &ServerError{StatusCode: 502, Message: "upstream down"})

	tests := []struct {
		name        string
		err         error
		isTransport bool
		isServer    bool
	}{
		{"transport", transport, true, false},
		{"server", server, false, true},
		{"plain", errors.New("boom"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTransport, IsTransport(tt.err))
			assert.Equal(t, tt.isServer, IsServer(tt.err))
		})
	}

	assert.ErrorIs(t, transport, context.Canceled, "transport errors unwrap to their cause")
	assert.EqualError(t, transport, "loading page 2: fetching tenders: context canceled")

	var se *ServerError
	require.ErrorAs(t, server, &se)
	assert.Equal(t, 502, se.StatusCode)
	assert.Nil(t, errors.Unwrap(se), "server errors carry no cause")
	assert.EqualError(t, &ServerError{StatusCode: 404}, "server error: HTTP 404")
}
