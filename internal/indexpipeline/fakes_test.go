package indexpipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/vectorstore"
)

type fakeCache struct {
	mu   sync.Mutex
	byId map[model.TaskId]model.Skeleton
}

func newFakeCache(skeletons ...model.Skeleton) *fakeCache {
	c := &fakeCache{byId: make(map[model.TaskId]model.Skeleton)}
	for _, sk := range skeletons {
		c.byId[sk.TaskId] = sk
	}
	return c
}

func (c *fakeCache) Get(id model.TaskId) (model.Skeleton, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sk, ok := c.byId[id]
	return sk, ok
}

func (c *fakeCache) Put(sk model.Skeleton) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byId[sk.TaskId] = sk
	return nil
}

func (c *fakeCache) Iter() []model.Skeleton {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Skeleton, 0, len(c.byId))
	for _, sk := range c.byId {
		out = append(out, sk)
	}
	return out
}

// fakeStore is an in-memory vectorstore.VectorStore for tests. failNext
// makes the next N calls to Index fail with failErr before succeeding.
type fakeStore struct {
	mu          sync.Mutex
	indexed     map[model.TaskId]vectorstore.IndexableContent
	countByHost map[model.HostId]int
	failNext    int
	failErr     error
	calls       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		indexed:     make(map[model.TaskId]vectorstore.IndexableContent),
		countByHost: make(map[model.HostId]int),
	}
}

func (s *fakeStore) Index(ctx context.Context, content vectorstore.IndexableContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failNext > 0 {
		s.failNext--
		if s.failErr == nil {
			return errors.New("simulated transient failure")
		}
		return s.failErr
	}
	if _, existed := s.indexed[content.TaskId]; !existed {
		s.countByHost[content.HostId]++
	}
	s.indexed[content.TaskId] = content
	return nil
}

func (s *fakeStore) CountPointsByHost(ctx context.Context, host model.HostId) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countByHost[host], nil
}

func (s *fakeStore) Close() error { return nil }
