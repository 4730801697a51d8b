package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		value     interface{}
		requestID string
	}{
		{
			name:      "Invalid phenotype",
			code:      ErrCodeInvalidPhenotype,
			message:   "invalid blood group",
			value:     "AO",
			requestID: "req-123",
		},
		{
			name:      "Storage error",
			code:      ErrCodeStorage,
			message:   "result store unavailable",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.value, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestInvalidPhenotypeError(t *testing.T) {
	err := NewInvalidPhenotypeError("X")

	expected := `invalid blood group: "X", must be A, B, AB or O`
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}

	wrapped := fmt.Errorf("record #2: %w", err)
	if !errors.Is(wrapped, ErrInvalidPhenotype) {
		t.Error("wrapped error should match ErrInvalidPhenotype")
	}
	if errors.Is(wrapped, ErrInvalidParent) {
		t.Error("invalid phenotype must not match ErrInvalidParent")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("parents", "must be a list", "x")

	expected := "validation error for field 'parents': must be a list"
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}
}

func TestNewParentPair(t *testing.T) {
	pair, err := NewParentPair(PhenotypeA, PhenotypeO)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.String() != "A x O" {
		t.Errorf("unexpected pair string %q", pair.String())
	}

	if _, err := NewParentPair("a", PhenotypeO); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("expected ErrInvalidParent for father, got %v", err)
	}
	if _, err := NewParentPair(PhenotypeB, ""); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("expected ErrInvalidParent for mother, got %v", err)
	}
}
