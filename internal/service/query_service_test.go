package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/repository"
	"streampay-audit-backend/internal/service"
)

type fakeQueryRepo struct {
	available bool
	entries   []model.AuditEntry
	err       error
	lastReq   dto.AuditQueryRequest
	levels    map[string]int64
	actions   map[string]int64
}

func (r *fakeQueryRepo) Query(_ context.Context, req dto.AuditQueryRequest) ([]model.AuditEntry, error) {
	r.lastReq = req
	return r.entries, r.err
}

func (r *fakeQueryRepo) CountByLevel(_ context.Context, _ dto.AuditStatsRequest) (map[string]int64, error) {
	return r.levels, r.err
}

func (r *fakeQueryRepo) CountByAction(_ context.Context, _ dto.AuditStatsRequest) (map[string]int64, error) {
	return r.actions, r.err
}

func (r *fakeQueryRepo) Available() bool { return r.available }

func TestAuditQueryService_PaginationDefaults(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "Zero Limit Uses Default", limit: 0, offset: 0, wantLimit: service.DefaultQueryLimit, wantOffset: 0},
		{name: "Negative Limit Uses Default", limit: -5, offset: 0, wantLimit: service.DefaultQueryLimit, wantOffset: 0},
		{name: "Oversized Limit Uses Default", limit: service.MaxQueryLimit + 1, offset: 0, wantLimit: service.DefaultQueryLimit, wantOffset: 0},
		{name: "Explicit Limit Kept", limit: 25, offset: 50, wantLimit: 25, wantOffset: 50},
		{name: "Negative Offset Clamped", limit: 25, offset: -1, wantLimit: 25, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeQueryRepo{available: true}
			svc := service.NewAuditQueryService(repo)

			resp, err := svc.Query(context.Background(), dto.AuditQueryRequest{Limit: tt.limit, Offset: tt.offset})

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, resp.Limit)
			assert.Equal(t, tt.wantOffset, resp.Offset)
			assert.Equal(t, tt.wantLimit, repo.lastReq.Limit)
			assert.Equal(t, tt.wantOffset, repo.lastReq.Offset)
		})
	}
}

func TestAuditQueryService_InvertedTimeRangeRejected(t *testing.T) {
	svc := service.NewAuditQueryService(&fakeQueryRepo{available: true})

	_, err := svc.Query(context.Background(), dto.AuditQueryRequest{
		StartTime: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	assert.Error(t, err)
}

func TestAuditQueryService_UnavailableStoreReturnsEmpty(t *testing.T) {
	svc := service.NewAuditQueryService(&fakeQueryRepo{available: false})

	resp, err := svc.Query(context.Background(), dto.AuditQueryRequest{})

	require.NoError(t, err)
	require.NotNil(t, resp.Entries)
	assert.Empty(t, resp.Entries)
	assert.Equal(t, 0, resp.Count)
}

func TestAuditQueryService_UnavailableErrorDegradesToEmpty(t *testing.T) {
	svc := service.NewAuditQueryService(&fakeQueryRepo{available: true, err: repository.ErrStoreUnavailable})

	resp, err := svc.Query(context.Background(), dto.AuditQueryRequest{})

	require.NoError(t, err)
	require.NotNil(t, resp.Entries)
	assert.Empty(t, resp.Entries)
}

func TestAuditQueryService_GenuineErrorPropagates(t *testing.T) {
	svc := service.NewAuditQueryService(&fakeQueryRepo{available: true, err: errors.New("bad connection")})

	_, err := svc.Query(context.Background(), dto.AuditQueryRequest{})

	assert.Error(t, err)
}

func TestAuditQueryService_NilRepoResultNormalized(t *testing.T) {
	svc := service.NewAuditQueryService(&fakeQueryRepo{available: true, entries: nil})

	resp, err := svc.Query(context.Background(), dto.AuditQueryRequest{})

	require.NoError(t, err)
	require.NotNil(t, resp.Entries)
	assert.Equal(t, 0, resp.Count)
}
