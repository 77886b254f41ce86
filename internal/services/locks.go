package services

import (
	"context"
	"fmt"
	"sort"
)

// lockExistingUsers looks up all ids in one round trip and row-locks the
// users that exist, in ascending id order so concurrent callers touching the
// same pair in either direction cannot deadlock. It returns the set of ids found.
func lockExistingUsers(ctx context.Context, q DBConn, ids ...int64) (map[int64]bool, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rows, err := q.Query(ctx,
		`SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		sorted,
	)
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(sorted))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan locked user: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}
	return found, nil
}
