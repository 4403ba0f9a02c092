package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/allocator"
	"github.com/seatgrid/reservation-engine/internal/config"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/engine"
	httphandler "github.com/seatgrid/reservation-engine/internal/http"
	"github.com/seatgrid/reservation-engine/internal/ledger"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"github.com/seatgrid/reservation-engine/internal/pool"
	"github.com/seatgrid/reservation-engine/internal/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	p := pool.New([]domain.ResourceUnit{
		{ID: "A", Kind: domain.KindSeat, Price: 100},
		{ID: "B", Kind: domain.KindSeat, Price: 100},
		{ID: "C", Kind: domain.KindSeat, Price: 100},
	})
	l := ledger.New()
	a := allocator.New(p, l)
	logger := observability.NewLogger()
	coord := settlement.NewCoordinator(p, l, nil, logger)
	eng := engine.New(p, l, a, coord, logger, time.Hour)

	cfg := &config.Config{HoldTTL: time.Hour}
	h := httphandler.NewHandlers(cfg, eng, nil)
	srv := httptest.NewServer(httphandler.SetupRouter(h, logger, nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeReservation(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateReservation(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/v1/reservations", map[string]interface{}{
		"requester_id": uuid.New(),
		"count":        2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	res := decodeReservation(t, resp)
	assert.Equal(t, "PENDING", res["status"])
	assert.Equal(t, []interface{}{"A", "B"}, res["units"])
	assert.Equal(t, 200.0, res["amount"])
}

func TestCreateReservation_Insufficient(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/v1/reservations", map[string]interface{}{
		"requester_id": uuid.New(),
		"count":        4,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestConfirmAndCancelFlow(t *testing.T) {
	srv := newServer(t)

	created := decodeReservation(t, postJSON(t, srv.URL+"/v1/reservations", map[string]interface{}{
		"requester_id": uuid.New(),
		"count":        2,
	}))
	id := created["id"].(string)

	resp := postJSON(t, srv.URL+"/v1/reservations/"+id+"/confirm", map[string]interface{}{
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirmed := decodeReservation(t, resp)
	assert.Equal(t, "CONFIRMED", confirmed["status"])
	assert.NotEmpty(t, confirmed["settled_at"])

	// Cancel after confirm is a lost race, reported loudly.
	resp = postJSON(t, srv.URL+"/v1/reservations/"+id+"/cancel", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestConfirm_PaymentDeclined(t *testing.T) {
	srv := newServer(t)

	created := decodeReservation(t, postJSON(t, srv.URL+"/v1/reservations", map[string]interface{}{
		"requester_id": uuid.New(),
		"count":        2,
	}))
	id := created["id"].(string)

	resp := postJSON(t, srv.URL+"/v1/reservations/"+id+"/confirm", map[string]interface{}{
		"payment_method": "card",
		"card_limit":     50,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/v1/reservations/" + id)
	require.NoError(t, err)
	got := decodeReservation(t, getResp)
	assert.Equal(t, "CANCELLED", got["status"])
}

func TestGetReservation_NotFound(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/v1/reservations/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/reservations/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListUnits(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/v1/units")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var units []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&units))
	require.Len(t, units, 3)
	assert.Equal(t, "FREE", units[0]["status"])
}

func TestUnknownPaymentMethod(t *testing.T) {
	srv := newServer(t)

	created := decodeReservation(t, postJSON(t, srv.URL+"/v1/reservations", map[string]interface{}{
		"requester_id": uuid.New(),
		"count":        1,
	}))
	id := created["id"].(string)

	resp := postJSON(t, srv.URL+"/v1/reservations/"+id+"/confirm", map[string]interface{}{
		"payment_method": "barter",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
