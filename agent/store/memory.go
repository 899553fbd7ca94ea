package store

import (
	"context"
	"sort"
	"sync"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

type memoryRecord struct {
	partitionKey string
	body         []byte
}

// Memory keeps documents in process memory. Put overwrites by id.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]memoryRecord
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]memoryRecord)}
}

func (m *Memory) Put(_ context.Context, container string, partitionKey string, doc contractx.Document) (string, error) {
	id, body, err := encode(container, doc)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[container] == nil {
		m.data[container] = make(map[string]memoryRecord)
	}
	m.data[container][id] = memoryRecord{partitionKey: partitionKey, body: body}
	return id, nil
}

func (m *Memory) Get(_ context.Context, container string, id string, out any) error {
	m.mu.RLock()
	rec, ok := m.data[container][id]
	m.mu.RUnlock()
	if !ok {
		return notFound(container, id)
	}
	return decode(container, id, rec.body, out)
}

// IDs lists the document ids stored in container, sorted.
func (m *Memory) IDs(container string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.data[container]))
	for id := range m.data[container] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PartitionKey returns the partition key a document was stored under.
func (m *Memory) PartitionKey(container, id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[container][id]
	return rec.partitionKey, ok
}

func (m *Memory) Close() error { return nil }
