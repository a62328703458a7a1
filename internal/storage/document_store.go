// internal/storage/document_store.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DocumentStore is a file-backed hierarchical document store. Documents are
// JSON files addressed by a collection path plus document id, mirroring the
// layout of a per-user document database:
//
//	users/{userID}/story_bibles/{bibleID}
//	users/{userID}/story_bibles/{bibleID}/preproduction/{docID}
//	shared/{shareID}
//	share_links/{linkID}
//
// Writes are atomic (temp file + rename) and serialized per path. Reads go
// through a small expiring cache. Document-level last-write-wins is the only
// concurrency guarantee, matching the hosted store this stands in for.
type DocumentStore struct {
	BaseDir string

	pathLocks sync.Map // full path -> *sync.RWMutex

	cache        map[string]*cacheEntry
	cacheMutex   sync.RWMutex
	cacheExpiry  time.Duration
	maxCacheSize int
}

type cacheEntry struct {
	data      []byte
	timestamp time.Time
}

// NewDocumentStore creates the store rooted at baseDir.
func NewDocumentStore(baseDir string) (*DocumentStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	ds := &DocumentStore{
		BaseDir:      baseDir,
		cache:        make(map[string]*cacheEntry),
		cacheExpiry:  5 * time.Minute,
		maxCacheSize: 200,
	}
	ds.startCacheCleanup()
	return ds, nil
}

func (ds *DocumentStore) getPathLock(fullPath string) *sync.RWMutex {
	value, _ := ds.pathLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (ds *DocumentStore) docPath(collection, docID string) string {
	return filepath.Join(ds.BaseDir, filepath.FromSlash(collection), docID+".json")
}

// SaveDoc marshals v and writes it atomically under collection/docID.
func (ds *DocumentStore) SaveDoc(collection, docID string, v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	fullPath := ds.docPath(collection, docID)

	lock := ds.getPathLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write temp document: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to commit document: %w", err)
	}

	ds.invalidateCache(fullPath)
	return nil
}

// ErrDocNotFound reports a missing document without leaking file paths.
type ErrDocNotFound struct {
	Collection string
	DocID      string
}

func (e *ErrDocNotFound) Error() string {
	return fmt.Sprintf("document not found: %s/%s", e.Collection, e.DocID)
}

// LoadDoc reads collection/docID into v.
func (ds *DocumentStore) LoadDoc(collection, docID string, v interface{}) error {
	fullPath := ds.docPath(collection, docID)

	if data, ok := ds.cachedRead(fullPath); ok {
		return json.Unmarshal(data, v)
	}

	lock := ds.getPathLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	if data, ok := ds.cachedRead(fullPath); ok {
		return json.Unmarshal(data, v)
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ErrDocNotFound{Collection: collection, DocID: docID}
		}
		return fmt.Errorf("failed to read document: %w", err)
	}

	ds.updateCache(fullPath, content)

	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	return nil
}

// DocExists reports whether collection/docID exists.
func (ds *DocumentStore) DocExists(collection, docID string) bool {
	_, err := os.Stat(ds.docPath(collection, docID))
	return err == nil
}

// IsNotFound reports whether err is a missing-document error.
func IsNotFound(err error) bool {
	_, ok := err.(*ErrDocNotFound)
	return ok
}

// ListDocIDs returns the document ids in a collection, sorted.
func (ds *DocumentStore) ListDocIDs(collection string) ([]string, error) {
	fullPath := filepath.Join(ds.BaseDir, filepath.FromSlash(collection))
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (ds *DocumentStore) cachedRead(fullPath string) ([]byte, bool) {
	ds.cacheMutex.RLock()
	defer ds.cacheMutex.RUnlock()

	entry, exists := ds.cache[fullPath]
	if !exists || time.Since(entry.timestamp) > ds.cacheExpiry {
		return nil, false
	}
	return entry.data, true
}

func (ds *DocumentStore) updateCache(path string, data []byte) {
	ds.cacheMutex.Lock()
	defer ds.cacheMutex.Unlock()

	ds.cache[path] = &cacheEntry{data: data, timestamp: time.Now()}

	if len(ds.cache) > ds.maxCacheSize {
		var oldestKey string
		var oldestTime time.Time
		for key, entry := range ds.cache {
			if oldestKey == "" || entry.timestamp.Before(oldestTime) {
				oldestKey = key
				oldestTime = entry.timestamp
			}
		}
		if oldestKey != "" {
			delete(ds.cache, oldestKey)
		}
	}
}

func (ds *DocumentStore) invalidateCache(path string) {
	ds.cacheMutex.Lock()
	defer ds.cacheMutex.Unlock()
	delete(ds.cache, path)
}

func (ds *DocumentStore) startCacheCleanup() {
	go func() {
		ticker := time.NewTicker(2 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			ds.cacheMutex.Lock()
			now := time.Now()
			for path, entry := range ds.cache {
				if now.Sub(entry.timestamp) > ds.cacheExpiry {
					delete(ds.cache, path)
				}
			}
			ds.cacheMutex.Unlock()
		}
	}()
}
