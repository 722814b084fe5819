package db

import (
	"context"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes expired rows. Reads already ignore them, this only reclaims space.
func (s *CacheStore) Tidy(ctx context.Context) (int64, error) {
	deleteExpired := sb.SQLite.NewDeleteBuilder()
	query, args := deleteExpired.DeleteFrom(table).
		Where(deleteExpired.LessEqualThan("expires_at", s.now().UnixMilli())).
		Build()

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"count": count,
	}).Info("Tidied cache database")

	return count, nil
}
