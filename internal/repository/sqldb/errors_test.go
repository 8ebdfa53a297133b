package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func TestDBError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"pq lock timeout", &pq.Error{Code: "55P03"}, entity.ErrLockTimeout},
		{"pq deadlock", &pq.Error{Code: "40P01"}, entity.ErrLockTimeout},
		{"pq serialization", &pq.Error{Code: "40001"}, entity.ErrLockTimeout},
		{"pq unique", &pq.Error{Code: "23505"}, entity.ErrConflict},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, entity.ErrLockTimeout},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, entity.ErrConflict},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), entity.ErrLockTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dbError("op", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err, "driver error stays in the chain")
		})
	}
}

func TestDBError_Unclassified(t *testing.T) {
	err := dbError("op", errors.New("syntax error"))
	assert.Equal(t, entity.KindInternal, entity.KindOf(err))
	assert.False(t, entity.IsRetryable(err))
}

func TestNotFoundOr(t *testing.T) {
	assert.ErrorIs(t, notFoundOr("get", sql.ErrNoRows), entity.ErrNotFound)
	assert.NotErrorIs(t, notFoundOr("get", errors.New("x")), entity.ErrNotFound)
}
