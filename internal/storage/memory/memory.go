// Package memory is an in-process KV used for ephemeral runs and tests.
package memory

import (
	"context"
	"sync"
)

type KV struct {
	mu     sync.Mutex
	values map[string][]byte
	puts   int
}

func New() *KV {
	return &KV{values: make(map[string][]byte)}
}

func (k *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (k *KV) Put(_ context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.values[key] = append([]byte(nil), value...)
	k.puts++
	return nil
}

// Puts returns the number of writes so far.
func (k *KV) Puts() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.puts
}

func (k *KV) Ping(context.Context) error { return nil }

func (k *KV) Close() error { return nil }
