package hierarchy

import "github.com/codenerd-labs/conversync/internal/model"

// fakeCache is an in-memory CacheStore for tests, standing in for
// skeletoncache.Cache without pulling in filesystem I/O.
type fakeCache struct {
	byId map[model.TaskId]model.Skeleton
	puts int
}

func newFakeCache(skeletons ...model.Skeleton) *fakeCache {
	c := &fakeCache{byId: make(map[model.TaskId]model.Skeleton)}
	for _, sk := range skeletons {
		c.byId[sk.TaskId] = sk
	}
	return c
}

func (c *fakeCache) Get(id model.TaskId) (model.Skeleton, bool) {
	sk, ok := c.byId[id]
	return sk, ok
}

func (c *fakeCache) Put(sk model.Skeleton) error {
	c.byId[sk.TaskId] = sk
	c.puts++
	return nil
}

func (c *fakeCache) Iter() []model.Skeleton {
	out := make([]model.Skeleton, 0, len(c.byId))
	for _, sk := range c.byId {
		out = append(out, sk)
	}
	return out
}
