package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"Invalid Input", apperrors.New(apperrors.InvalidInput, "bad"), http.StatusBadRequest},
		{"Not Found", apperrors.New(apperrors.NotFound, "missing"), http.StatusNotFound},
		{"Precondition Failed", apperrors.New(apperrors.PreconditionFailed, "insufficient funds"), http.StatusPreconditionFailed},
		{"Conflict", apperrors.New(apperrors.Conflict, "used"), http.StatusConflict},
		{"Plain Error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			Error(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			assert.Equal(t, tc.status, rr.Code)
			assert.Empty(t, rr.Header().Get("Retry-After"))
		})
	}

	t.Run("Retryable", func(t *testing.T) {
		rr := httptest.NewRecorder()

		Error(rr, httptest.NewRequest(http.MethodPost, "/transactions", nil), apperrors.Retry(errors.New("dynamodb: throttled"), "failed"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "1", rr.Header().Get("Retry-After"))
		var body api.Error
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "internal", body.Code)
		assert.NotContains(t, body.Message, "throttled")
	})
}

func TestDecode(t *testing.T) {
	decode := func(body string) error {
		var dst api.NewTransaction
		return Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &dst)
	}

	t.Run("Success", func(t *testing.T) {
		assert.NoError(t, decode(`{"payer_id":"alice","receiver_id":"bob","amount":"10.50"}`))
	})

	cases := map[string]string{
		"Empty Body":      ``,
		"Malformed":       `{"payer_id":`,
		"Unknown Field":   `{"payer_id":"alice","receiver_id":"bob","amount":"1","memo":"x"}`,
		"Missing Payer":   `{"receiver_id":"bob","amount":"1"}`,
		"Self Transfer":   `{"payer_id":"alice","receiver_id":"alice","amount":"1"}`,
		"Zero Amount":     `{"payer_id":"alice","receiver_id":"bob","amount":"0"}`,
		"Negative Amount": `{"payer_id":"alice","receiver_id":"bob","amount":"-3"}`,
		"Not A Number":    `{"payer_id":"alice","receiver_id":"bob","amount":"ten"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := decode(body)
			assert.True(t, apperrors.Is(err, apperrors.InvalidInput), "got %v", err)
		})
	}
}
