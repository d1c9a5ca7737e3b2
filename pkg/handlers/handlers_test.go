package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/eventlog"
	"github.com/chris/escrow-transfers/pkg/handlers/respond"
	"github.com/chris/escrow-transfers/pkg/handlers/transactions"
	"github.com/chris/escrow-transfers/pkg/handlers/webhooks"
	"github.com/chris/escrow-transfers/pkg/idempotency"
	"github.com/chris/escrow-transfers/pkg/ledger"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/settlement"
	"github.com/chris/escrow-transfers/pkg/storage/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	for id, balance := range map[string]int64{"payer": 500, "receiver": 300} {
		_, err := store.CreateAccount(context.Background(), &models.Account{Id: id, Balance: models.NewAmount(balance)})
		require.NoError(t, err)
	}

	events := eventlog.New(store)
	keys := idempotency.New(store)
	h := NewApiHandler(
		transactions.NewTransactionsHandler(keys, ledger.New(store, keys, time.Second), nil),
		webhooks.NewWebhooksHandler(settlement.New(store, events), events),
	)
	router := chi.NewRouter()
	api.HandlerWithOptions(h, api.ChiServerOptions{BaseRouter: router, ErrorHandlerFunc: respond.ParamError})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, method, url string, headers map[string]string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func balance(t *testing.T, store *memory.Store, id string) string {
	t.Helper()
	a, err := store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance.String()
}

func TestTransferLifecycle(t *testing.T) {
	srv, store := newServer(t)
	user := map[string]string{"X-User-Id": "payer"}

	var key api.IdempotencyKey
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/transactions/idempotency/generate", user, nil, &key))
	assert.Equal(t, api.IdempotencyKeyStatusActive, key.Status)

	var created api.TransactionCreated
	status := do(t, http.MethodPost, srv.URL+"/transactions",
		map[string]string{"X-User-Id": "payer", "Idempotency-Key": key.Key},
		api.NewTransaction{PayerId: "payer", ReceiverId: "receiver", Amount: "100"}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "400", balance(t, store, "payer"))
	assert.Equal(t, "300", balance(t, store, "receiver"))

	notification := api.PaymentGatewayNotification{TransactionId: created.TransactionId, Status: "approved"}
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/webhook/payment-gateway", nil, notification, nil))
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/webhook/payment-gateway", nil, notification, nil))

	assert.Equal(t, "400", balance(t, store, "payer"))
	assert.Equal(t, "400", balance(t, store, "receiver"))

	var tx api.Transaction
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/transactions/"+created.TransactionId, nil, nil, &tx))
	assert.Equal(t, api.TransactionStatusApproved, tx.Status)

	var events []api.SettlementEvent
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/webhook/logs?transaction_id="+created.TransactionId, nil, nil, &events))
	require.Len(t, events, 2)
	assert.Equal(t, api.SettlementEventOutcomeSuccess, events[0].Outcome)
	assert.Equal(t, api.SettlementEventOutcomeNoop, events[1].Outcome)

	var summaries []api.TransactionSummary
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/users/receiver/transactions", nil, nil, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, api.TransactionSummaryDirectionReceived, summaries[0].Direction)
	assert.Equal(t, api.TransactionStatusApproved, summaries[0].Status)
}

func TestParameterErrors(t *testing.T) {
	srv, _ := newServer(t)

	t.Run("Missing User Header", func(t *testing.T) {
		var body api.Error
		status := do(t, http.MethodPost, srv.URL+"/transactions/idempotency/generate", nil, nil, &body)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_input", body.Code)
	})

	t.Run("Missing Idempotency Key", func(t *testing.T) {
		status := do(t, http.MethodPost, srv.URL+"/transactions", map[string]string{"X-User-Id": "payer"},
			api.NewTransaction{PayerId: "payer", ReceiverId: "receiver", Amount: "1"}, nil)

		assert.Equal(t, http.StatusBadRequest, status)
	})
}
