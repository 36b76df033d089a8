// Package storageclass implements StorageClassifier (spec.md §4.7): a pure
// function of a path prefix that decides whether I/O against that path
// should use the parallel local policy or the throttled network policy.
package storageclass

import (
	"strings"
	"time"
)

// networkPrefixes are scheme-style prefixes that always mean network
// storage, per spec.md §4.7.
var networkPrefixes = []string{
	"smb://", "nfs://", "afp://", "cifs://", "//",
}

// safeLocalVolumeSubstrings are substrings of a /Volumes/<name> mount that
// indicate an internal disk rather than a network share, per spec.md §4.7.
var safeLocalVolumeSubstrings = []string{
	"macintosh hd", "ssd", "internal", "system", "data",
}

// Config is the I/O policy returned for a path, per spec.md §4.7.
type Config struct {
	BufferSize      int
	Concurrency     int
	OperationDelay  time.Duration
	Description     string
}

var (
	localConfig = Config{
		BufferSize:     64 * 1024,
		Concurrency:    22,
		OperationDelay: 0,
		Description:    "local disk",
	}
	networkConfig = Config{
		BufferSize:     1024 * 1024,
		Concurrency:    1,
		OperationDelay: 50 * time.Millisecond,
		Description:    "network share",
	}
)

// IsNetworkPath reports whether path should be treated as network storage,
// per the prefix rules in spec.md §4.7.
func IsNetworkPath(path string) bool {
	lower := strings.ToLower(path)

	for _, prefix := range networkPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	if strings.HasPrefix(path, "/Volumes/") {
		rest := strings.ToLower(strings.TrimPrefix(path, "/Volumes/"))
		for _, safe := range safeLocalVolumeSubstrings {
			if strings.Contains(rest, safe) {
				return false
			}
		}
		return true
	}

	if strings.HasPrefix(lower, "/mnt/") || strings.HasPrefix(lower, "/media/") {
		return true
	}

	return false
}

// GetStorageConfig returns the I/O policy for a path.
func GetStorageConfig(path string) Config {
	if IsNetworkPath(path) {
		return networkConfig
	}
	return localConfig
}
