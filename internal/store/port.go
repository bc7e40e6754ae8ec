package store

import (
	"encoding/json"
	"fmt"

	"github.com/soyeahso/campusbot/internal/domain"
)

// Port is the persistence boundary for the session collection.
type Port interface {
	LoadAll() (domain.Collection, error)
	SaveAll(domain.Collection) error
}

// KVPort keeps the whole collection as JSON under a single key.
type KVPort struct {
	kv  KV
	key string
}

// NewKVPort creates a port storing the collection under key.
func NewKVPort(kv KV, key string) *KVPort {
	return &KVPort{kv: kv, key: key}
}

// LoadAll reads the collection. A missing key yields an empty collection.
func (p *KVPort) LoadAll() (domain.Collection, error) {
	data, ok, err := p.kv.Get(p.key)
	if err != nil {
		return domain.NewCollection(), err
	}
	if !ok || len(data) == 0 {
		return domain.NewCollection(), nil
	}
	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.NewCollection(), fmt.Errorf("decoding %s: %w", p.key, err)
	}
	return c, nil
}

// SaveAll serializes and writes the full collection.
func (p *KVPort) SaveAll(c domain.Collection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	return p.kv.Set(p.key, data)
}
