package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	type payload struct {
		Code     string `json:"code"`
		Language string `json:"language"`
	}

	testCases := []struct {
		name        string
		body        string
		expected    payload
		expectedErr string
	}{
		{
			name:     "Valid body",
			body:     `{"code":"print(1)","language":"python"}`,
			expected: payload{Code: "print(1)", Language: "python"},
		},
		{name: "Empty body", body: "", expectedErr: "body must not be empty"},
		{name: "Malformed JSON", body: `{"code":`, expectedErr: "badly-formed JSON"},
		{name: "Unknown field", body: `{"code":"x","extra":1}`, expectedErr: `unknown key "extra"`},
		{name: "Wrong type", body: `{"code":5}`, expectedErr: `incorrect JSON type for field "code"`},
		{name: "Trailing value", body: `{"code":"x"}{"code":"y"}`, expectedErr: "single JSON value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			var got payload
			err := ReadJSON(w, r, &got)
			if tc.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestErrorResponsesAreJSON(t *testing.T) {
	w := httptest.NewRecorder()
	Conflict(w, "you already have an active duel", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "you already have an active duel", body["error"])
}

func TestInternalServerErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	InternalServerError(w, "failed to load duel", assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}
