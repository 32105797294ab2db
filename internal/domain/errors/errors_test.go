package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"already exists", ErrAlreadyExists},
		{"not found", ErrNotFound},
		{"stale status", ErrStaleStatus},
		{"invalid product", ErrInvalidProduct},
		{"unknown purchase", ErrUnknownPurchase},
		{"order mismatch", ErrOrderMismatch},
		{"auth", ErrAuth},
		{"remote query", ErrRemoteQuery},
		{"remote capture", ErrRemoteCapture},
		{"gateway response", ErrGatewayResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !stdErrors.Is(tc.err, tc.err) {
				t.Fatalf("expected error to match itself: %v", tc.err)
			}
		})
	}
}

func TestIsClientError(t *testing.T) {
	for _, err := range []error{ErrInvalidProduct, ErrUnknownPurchase, fmt.Errorf("redirect: %w", ErrOrderMismatch)} {
		if !IsClientError(err) {
			t.Fatalf("expected %v to be a client error", err)
		}
	}
	for _, err := range []error{ErrAuth, ErrRemoteCapture, ErrGatewayResponse, ErrNotFound, stdErrors.New("boom")} {
		if IsClientError(err) {
			t.Fatalf("did not expect %v to be a client error", err)
		}
	}
}
