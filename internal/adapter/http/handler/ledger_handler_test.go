package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gotransfer/internal/adapter/http/dto"
	"github.com/iho/gotransfer/internal/usecase"
)

type consistencyStub struct {
	consistent bool
	unpaired   int64
	err        error
}

func (s consistencyStub) CheckConsistency(ctx context.Context) (bool, int64, error) {
	return s.consistent, s.unpaired, s.err
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	tests := []struct {
		name     string
		stub     consistencyStub
		status   int
		unpaired int64
	}{
		{"consistent", consistencyStub{consistent: true}, http.StatusOK, 0},
		{"unpaired", consistencyStub{unpaired: 3, err: fmt.Errorf("%w: 3 correlation ids", usecase.ErrInconsistentLedger)}, http.StatusConflict, 3},
		{"storage failure", consistencyStub{err: errors.New("db down")}, http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(tt.stub)
			rec := httptest.NewRecorder()

			h.CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusInternalServerError {
				return
			}
			var resp dto.ConsistencyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.unpaired, resp.UnpairedTransfers)
			assert.Equal(t, tt.status == http.StatusOK, resp.Consistent)
		})
	}
}

type pingerStub struct{ err error }

func (p pingerStub) Ping(ctx context.Context) error { return p.err }

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(pingerStub{}, nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_Readiness(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rec := httptest.NewRecorder()
	NewHealthHandler(pingerStub{}, client).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(pingerStub{err: errors.New("refused")}, client).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	mr.Close()
	rec = httptest.NewRecorder()
	NewHealthHandler(pingerStub{}, client).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthHandler_ReadinessWithoutRedis(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(pingerStub{}, nil).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}
