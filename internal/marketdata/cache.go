package marketdata

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CacheManager is a file-backed cache for provider responses so
// repeated runs inside one session do not burn the provider quota.
type CacheManager struct {
	cacheDir string
	ttl      time.Duration
	enabled  bool
}

// NewCacheManager creates a cache rooted at cacheDir with the given TTL.
func NewCacheManager(cacheDir string, ttl time.Duration, enabled bool) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
		ttl:      ttl,
		enabled:  enabled,
	}
}

func (cm *CacheManager) cacheKey(method string, params interface{}) string {
	data, _ := json.Marshal(params)
	return fmt.Sprintf("%s_%x.json", method, md5.Sum(data))
}

// Get retrieves a cached entry into result, reporting whether a fresh
// entry existed. Expired entries are removed on access.
func (cm *CacheManager) Get(method string, params interface{}, result interface{}) bool {
	if !cm.enabled {
		return false
	}

	filePath := filepath.Join(cm.cacheDir, cm.cacheKey(method, params))
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > cm.ttl {
		os.Remove(filePath)
		return false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

// Set stores an entry in the cache.
func (cm *CacheManager) Set(method string, params interface{}, data interface{}) error {
	if !cm.enabled {
		return nil
	}

	if err := os.MkdirAll(cm.cacheDir, 0755); err != nil {
		return err
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cm.cacheDir, cm.cacheKey(method, params)), jsonData, 0644)
}
