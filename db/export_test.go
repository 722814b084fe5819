package db

import "time"

func (s *CacheStore) SetClock(now func() time.Time) {
	s.now = now
}
