package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
)

type memoryCacheRepo struct {
	items   map[string][]byte
	getErr  error
	deleted []string
	lastTTL time.Duration
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.lastTTL = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), cacheKeyTeams, []string{"Bruins"})
	var dest []string
	assert.False(t, svc.Get(context.Background(), cacheKeyTeams, &dest))
	assert.Empty(t, repo.items)
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	svc.Set(ctx, cacheKeyRoster(4), []string{"Ava"})
	svc.Set(ctx, cacheKeyTeams, []string{"Bruins"})
	assert.Equal(t, time.Minute, repo.lastTTL)

	var dest []string
	assert.True(t, svc.Get(ctx, cacheKeyRoster(4), &dest))
	assert.Equal(t, []string{"Ava"}, dest)

	svc.Invalidate(ctx, cacheKeyRoster(4))
	assert.False(t, svc.Get(ctx, cacheKeyRoster(4), &dest))
	assert.True(t, svc.Get(ctx, cacheKeyTeams, &dest))

	svc.InvalidateAll(ctx)
	assert.Empty(t, repo.items)
}

func TestCacheServiceSwallowsErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var dest []string
	assert.False(t, svc.Get(context.Background(), cacheKeyTeams, &dest))
}
