package news

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// cache is a file-backed TTL cache for fetched headlines, keeping repeated
// batch runs within a day from hammering the feed.
type cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

func newCache(dir string, ttl time.Duration, enabled bool) *cache {
	return &cache{dir: dir, ttl: ttl, enabled: enabled}
}

func (c *cache) key(kind string, params interface{}) string {
	data, _ := json.Marshal(params)
	return fmt.Sprintf("%s_%x.json", kind, md5.Sum(data))
}

func (c *cache) get(kind string, params interface{}, result interface{}) bool {
	if !c.enabled {
		return false
	}

	path := filepath.Join(c.dir, c.key(kind, params))
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > c.ttl {
		os.Remove(path)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

func (c *cache) set(kind string, params interface{}, data interface{}) error {
	if !c.enabled {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, c.key(kind, params)), payload, 0644)
}
