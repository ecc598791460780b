package storage

import (
	"github.com/patrickmn/go-cache"
	"sort"
	"time"
)

type goCacheLocalStorageAdapter struct {
	valuesCache *cache.Cache
}

// NewGoCacheLocalStorage keeps values in process memory. Zero expiration
// hours means values live until removed.
func NewGoCacheLocalStorage(expirationTimeHours int, evictScheduleTimeHours int) *goCacheLocalStorageAdapter {
	expiration := cache.NoExpiration
	if expirationTimeHours > 0 {
		expiration = time.Hour * time.Duration(expirationTimeHours)
	}
	valuesCache := cache.New(
		expiration,
		time.Hour*time.Duration(evictScheduleTimeHours),
	)
	return &goCacheLocalStorageAdapter{
		valuesCache: valuesCache,
	}
}

func (adapter *goCacheLocalStorageAdapter) Get(key string) (string, bool) {
	value, found := adapter.valuesCache.Get(key)
	if found {
		return value.(string), true
	} else {
		return "", false
	}
}

func (adapter *goCacheLocalStorageAdapter) Set(key string, value string) error {
	adapter.valuesCache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (adapter *goCacheLocalStorageAdapter) Remove(key string) error {
	adapter.valuesCache.Delete(key)
	return nil
}

func (adapter *goCacheLocalStorageAdapter) Keys() ([]string, error) {
	items := adapter.valuesCache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
