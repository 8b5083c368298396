package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	payload := map[string]string{"hello": "world"}

	WriteJSON(w, http.StatusOK, payload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "world", body["hello"])
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, "something went wrong")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "something went wrong", body["error"])
}

func TestWriteJSON_NilValue(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	// json.Encode(nil) produces "null\n"
	assert.Equal(t, "null\n", w.Body.String())
}

func TestWriteDomainError_MapsCodeToStatus(t *testing.T) {
	tests := []struct {
		code   apperr.Code
		status int
	}{
		{apperr.CodeAuth, http.StatusUnauthorized},
		{apperr.CodeAccessDenied, http.StatusForbidden},
		{apperr.CodeNotFound, http.StatusNotFound},
		{apperr.CodeDecode, http.StatusUnprocessableEntity},
		{apperr.CodeUpstream, http.StatusBadGateway},
		{apperr.CodeRotationInProgress, http.StatusConflict},
		{apperr.CodeInvalidInput, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteDomainError(w, apperr.New(tt.code, "boom"))

		assert.Equal(t, tt.status, w.Code, "code %s", tt.code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, string(tt.code), body["code"])
		assert.Equal(t, "boom", body["error"])
	}
}

func TestWriteDomainError_MasksInternalCause(t *testing.T) {
	w := httptest.NewRecorder()

	WriteDomainError(w, errors.New("pgx: connection refused to 10.0.3.7"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])
	assert.NotContains(t, w.Body.String(), "10.0.3.7")
}
