package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSON_SetsContentTypeAndStatus(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	JSON(rr, http.StatusCreated, map[string]string{"a": "b"})

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var m map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	require.Equal(t, "b", m["a"])
}

func TestErrorWithID(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	ErrorWithID(rr, http.StatusConflict, "conflict", "wrong phase", "rid-1")

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "conflict", body.Error)
	require.Equal(t, "wrong phase", body.Message)
	require.Equal(t, "rid-1", body.RequestID)
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		fn     func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", BadRequest, http.StatusBadRequest, "bad_request"},
		{"unprocessable", Unprocessable, http.StatusUnprocessableEntity, "validation_failed"},
		{"not found", NotFound, http.StatusNotFound, "not_found"},
		{"conflict", Conflict, http.StatusConflict, "conflict"},
		{"bad gateway", BadGateway, http.StatusBadGateway, "bad_gateway"},
		{"internal", Internal, http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()
			tc.fn(rr, "msg")
			require.Equal(t, tc.status, rr.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, tc.code, body.Error)
		})
	}
}

func TestNoContent(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NoContent(rr)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Empty(t, rr.Body.Bytes())
}
