package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// HistoryRepo persists the history_append storage primitive (spec §6): a
// best-effort audit trail of queries and the insight bundles they produced.
// Callers treat failures here as non-fatal; they are logged and never
// propagated to the request path.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

// NewHistoryRepo creates a HistoryRepo.
func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// Append records one query/bundle pair. callerID may be empty for internal
// or anonymous public callers. documentIDs is persisted as a text[] column
// for later filter-pattern analysis.
func (r *HistoryRepo) Append(ctx context.Context, callerID, query string, documentIDs []string, bundle json.RawMessage) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO query_history (id, caller_id, query_text, document_ids, bundle, created_at)
		VALUES (gen_random_uuid(), NULLIF($1, ''), $2, $3, $4, $5)`,
		callerID, query, pq.Array(documentIDs), bundle, time.Now().UTC(),
	)
	if err != nil {
		slog.Warn("[HISTORY] history_append failed, continuing", "error", err)
	}
}
