package lru

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

// ReportCache keeps recent analysis reports keyed by archive SHA-256. Reports
// are deep-copied on the way in and out.
type ReportCache struct {
	cache *lru.Cache[string, *domain.AnalysisReport]
}

func New(size int) (*ReportCache, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, *domain.AnalysisReport](size)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	return &ReportCache{cache: cache}, nil
}

func (c *ReportCache) Get(key string) (*domain.AnalysisReport, bool) {
	report, ok := c.cache.Get(key)
	if !ok || report == nil {
		return nil, false
	}
	return report.Clone(), true
}

func (c *ReportCache) Add(key string, report *domain.AnalysisReport) {
	if key == "" || report == nil {
		return
	}
	c.cache.Add(key, report.Clone())
}

func (c *ReportCache) Len() int {
	return c.cache.Len()
}
