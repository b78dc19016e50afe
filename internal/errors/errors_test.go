package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("open index.json: no such file")

	err := New(ErrCodeFileNotFound, "index not found", cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestError_Error_IncludesCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config", ErrCodeConfigInvalid, "bad threshold", "[ERR_101_CONFIG_INVALID] bad threshold"},
		{"corpus", ErrCodeCorpusUnavailable, "dataset empty", "[ERR_207_CORPUS_UNAVAILABLE] dataset empty"},
		{"schema", ErrCodeIndexSchemaMismatch, "model changed", "[ERR_407_INDEX_SCHEMA_MISMATCH] model changed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{ErrCodeCorpusUnavailable, CategoryIO, SeverityFatal},
		{ErrCodeEmbedderUnavailable, CategoryEmbedding, SeverityWarning},
		{ErrCodeIndexSchemaMismatch, CategoryValidation, SeverityWarning},
		{ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "x", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestHasCode_FindsWrappedError(t *testing.T) {
	inner := SchemaError("embedding rows do not match titles", nil)
	wrapped := fmt.Errorf("load index: %w", inner)

	assert.True(t, HasCode(wrapped, ErrCodeIndexSchemaMismatch))
	assert.False(t, HasCode(wrapped, ErrCodeCorruptIndex))
	assert.Equal(t, ErrCodeIndexSchemaMismatch, GetCode(wrapped))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}

func TestFormatForCLI_IncludesHint(t *testing.T) {
	err := CorpusError("dataset has no rows", nil).WithSuggestion("check --dataset")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: dataset has no rows")
	assert.Contains(t, out, "Hint: check --dataset")
	assert.Contains(t, out, ErrCodeCorpusUnavailable)
}

func TestFormatJSON_WrapsPlainErrors(t *testing.T) {
	data, err := FormatJSON(stderrors.New("boom"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeInternal, decoded["code"])
	assert.Equal(t, "boom", decoded["message"])
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	calls := 0

	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return stderrors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	sentinel := stderrors.New("still down")

	err := Retry(context.Background(), cfg, func() error { return sentinel })

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}
