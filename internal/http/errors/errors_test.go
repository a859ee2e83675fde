package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrMissingFields.WithDetail("key is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MISSING_FIELDS", body["code"])
	assert.Equal(t, "key is required", body["detail"])
}

func TestWriteError_GenericHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("pg: dial tcp 10.0.0.5:5432: refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestWithDetail_DoesNotMutateBase(t *testing.T) {
	_ = ErrBadRequest.WithDetail("x")
	assert.Empty(t, ErrBadRequest.Detail)

	wrapped := fmt.Errorf("ctx: %w", ErrUnauthorized)
	assert.Same(t, ErrUnauthorized, FromError(wrapped))
}
