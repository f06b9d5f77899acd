package router

import (
	"sync"

	"github.com/jdginn/xtouch-gw/appkey"
)

// memStoreForRouterTest is a tiny in-memory persistence.KVStore, local to
// the router package's tests so they don't need a real Badger database.
type memStoreForRouterTest struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStoreForRouterTest() *memStoreForRouterTest {
	return &memStoreForRouterTest{data: make(map[string][]byte)}
}

func (m *memStoreForRouterTest) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memStoreForRouterTest) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStoreForRouterTest) Close() error { return nil }

func mustParseApp(name string) appkey.AppKey {
	k, ok := appkey.Parse(name)
	if !ok {
		panic("unknown app in test: " + name)
	}
	return k
}
