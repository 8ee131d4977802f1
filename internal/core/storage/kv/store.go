// Package kv 提供带前缀隔离的 KV 视图
//
//	trust := kv.New(eng, []byte("t/"))
//	trust.PutJSON([]byte(did), entry)   // 实际键: t/<did>
package kv

import (
	"encoding/json"

	"github.com/dep2p/go-didpeer/internal/core/storage/engine"
)

// Store 带前缀的 KV 视图
type Store struct {
	engine engine.Engine
	prefix []byte
}

// New 创建 Store
func New(eng engine.Engine, prefix []byte) *Store {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	return &Store{engine: eng, prefix: p}
}

func (s *Store) key(k []byte) []byte {
	out := make([]byte, len(s.prefix)+len(k))
	copy(out, s.prefix)
	copy(out[len(s.prefix):], k)
	return out
}

// Get 读取
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.key(key))
}

// Put 写入
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.key(key), value)
}

// Delete 删除
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.key(key))
}

// Has 检查存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.key(key))
}

// GetJSON 读取并反序列化 JSON
func (s *Store) GetJSON(key []byte, v interface{}) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// PutJSON 序列化为 JSON 并写入
func (s *Store) PutJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// ForEach 遍历本前缀下的全部键值，回调中的键已去除前缀
func (s *Store) ForEach(fn func(key, value []byte) error) error {
	return s.engine.Scan(s.prefix, func(k, v []byte) error {
		return fn(k[len(s.prefix):], v)
	})
}
