package indexdb

import (
	"context"
	"time"
)

type TxnRow struct {
	ID       string
	Owner    string
	Name     string
	State    string
	Ops      int
	ClosedAt time.Time
}

// RecentTransactions returns the newest transactions first.
func (s *SQLiteIndex) RecentTransactions(ctx context.Context, limit int) ([]TxnRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,owner,name,state,ops,closed_at FROM transactions ORDER BY closed_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TxnRow
	for rows.Next() {
		var (
			r      TxnRow
			closed string
		)
		if err := rows.Scan(&r.ID, &r.Owner, &r.Name, &r.State, &r.Ops, &closed); err != nil {
			return nil, err
		}
		r.ClosedAt, _ = time.Parse(time.RFC3339Nano, closed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SpawnTotals sums spawned counts per item over committed transactions.
func (s *SQLiteIndex) SpawnTotals(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.item, SUM(o.count)
		FROM txn_ops o JOIN transactions t ON t.id = o.txn_id
		WHERE t.state = 'COMMITTED' AND o.kind = 'SPAWN_ITEM'
		GROUP BY o.item`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			item string
			n    int
		)
		if err := rows.Scan(&item, &n); err != nil {
			return nil, err
		}
		out[item] = n
	}
	return out, rows.Err()
}
