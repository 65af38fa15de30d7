// internal/storage/kv.go
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ErrKeyNotFound 键不存在
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore 本地键值存储，草稿的本地落盘都经过它
type KeyValueStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

// Open 按驱动名创建键值存储：file | sqlite | memory
func Open(driver, path string) (KeyValueStore, error) {
	switch strings.ToLower(driver) {
	case "", "file":
		return NewFileKV(path)
	case "sqlite":
		return NewSQLiteKV(path)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("未知的本地存储驱动: %s", driver)
	}
}

// FileKV 每个键一个 JSON 文件
type FileKV struct {
	fs *FileStorage
}

const kvFileSuffix = ".json"

// NewFileKV 在 dir 下创建文件键值存储
func NewFileKV(dir string) (*FileKV, error) {
	fs, err := NewFileStorage(dir)
	if err != nil {
		return nil, err
	}
	return &FileKV{fs: fs}, nil
}

// 键可能含有任意字符，落盘前做转义
func keyToFilename(key string) string {
	return url.PathEscape(key) + kvFileSuffix
}

func filenameToKey(name string) (string, bool) {
	key, err := url.PathUnescape(strings.TrimSuffix(name, kvFileSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}

// Get 读取键值
func (s *FileKV) Get(key string) ([]byte, error) {
	data, err := s.fs.LoadTextFile("", keyToFilename(key))
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set 写入键值
func (s *FileKV) Set(key string, value []byte) error {
	return s.fs.SaveTextFile("", keyToFilename(key), value)
}

// Remove 删除键，键不存在时返回 ErrKeyNotFound
func (s *FileKV) Remove(key string) error {
	if err := s.fs.DeleteFile("", keyToFilename(key)); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return ErrKeyNotFound
		}
		return err
	}
	return nil
}

// Keys 列出带前缀的键
func (s *FileKV) Keys(prefix string) ([]string, error) {
	files, err := s.fs.ListFiles("", kvFileSuffix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, name := range files {
		key, ok := filenameToKey(name)
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close 关闭存储
func (s *FileKV) Close() error {
	return s.fs.Close()
}

// MemoryKV 进程内存储
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV 创建内存键值存储
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (s *MemoryKV) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryKV) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

func (s *MemoryKV) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return ErrKeyNotFound
	}
	delete(s.data, key)
	return nil
}

func (s *MemoryKV) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryKV) Close() error { return nil }
