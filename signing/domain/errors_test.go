package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpawnError_IsErrSpawnAndUnwraps(t *testing.T) {
	err := fmt.Errorf("invoke: %w", &SpawnError{Path: "/nope", Err: os.ErrNotExist})

	require.ErrorIs(t, err, ErrSpawn)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), "/nope")
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Outcome
	}{
		{name: "nil", err: nil, expected: OutcomeIssued},
		{name: "signer failure", err: &SignerFailure{ExitCode: 1, Stderr: "bad request"}, expected: OutcomeSignerFailure},
		{name: "bad request", err: ErrBadRequest, expected: OutcomeBadRequest},
		{name: "too large", err: fmt.Errorf("parse: %w", ErrUploadTooLarge), expected: OutcomeTooLarge},
		{name: "spawn", err: &SpawnError{Path: "x", Err: errors.New("denied")}, expected: OutcomeSpawnError},
		{name: "timeout", err: fmt.Errorf("invoke: %w", ErrSignerTimeout), expected: OutcomeTimeout},
		{name: "io", err: fmt.Errorf("acquire: %w", ErrArtifactIO), expected: OutcomeIOError},
		{name: "canceled", err: context.Canceled, expected: OutcomeCanceled},
		{name: "other", err: errors.New("boom"), expected: OutcomeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, OutcomeOf(tt.err))
		})
	}
}
