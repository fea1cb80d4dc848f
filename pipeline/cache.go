package pipeline

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheSize = 128

// statsCache remembers the results of recent runs keyed by the input
// file's fingerprint, so watch-mode reruns on an unchanged file skip the
// recompute entirely.
type statsCache struct {
	lru *lru.Cache[string, *RunResult]
}

func newStatsCache() *statsCache {
	c, err := lru.New[string, *RunResult](cacheSize)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &statsCache{lru: c}
}

func (c *statsCache) get(fp string) (*RunResult, bool) {
	return c.lru.Get(fp)
}

func (c *statsCache) put(fp string, r *RunResult) {
	c.lru.Add(fp, r)
}
