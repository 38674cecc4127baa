package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatcher"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/storetest"
)

type noopSideEffects struct{}

func (noopSideEffects) RecordSession(ctx context.Context, player string)      {}
func (noopSideEffects) AppendGameEvent(ctx context.Context, in *intent.Intent) {}
func (noopSideEffects) UpdateLeaderboard(ctx context.Context, player string, score *uint256.Int) {
}

func testServer() *Server {
	st := storetest.New()
	pool := account.NewPool([]string{"0xa"})
	n := notify.New()
	d := dispatcher.New(st, pool, n, noopSideEffects{}, nil)
	return New(d)
}

func TestHandleJumpAdmitsIntent(t *testing.T) {
	s := testServer()
	body, _ := json.Marshal(map[string]string{
		"player": "0xplayer", "game_id": "g1", "score": "10", "height": "3", "client_ts_ms": "1000",
	})
	req := httptest.NewRequest("POST", "/v1/jump", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, 202, rec.Code)
	var resp admitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp.ID)
}

func TestHandleJumpRejectsBadMethod(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest("GET", "/v1/jump", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, 405, rec.Code)
}

func TestHandlePendingReportsCount(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest("GET", "/v1/pending", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
}
