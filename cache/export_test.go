package cache

import "time"

func (m *MemoryStore) SetClock(now func() time.Time) {
	m.Lock()
	defer m.Unlock()
	m.now = now
}

var DeleteBatches = deleteBatches
