package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/vietddude/pointboard/internal/core/domain"
)

// ListRepo implements storage.ListRepository using PostgreSQL.
type ListRepo struct {
	db *DB
}

// NewListRepo creates a new PostgreSQL list repository.
func NewListRepo(db *DB) *ListRepo {
	return &ListRepo{db: db}
}

// FindIDsOnBoard returns which of ids belong to boardID.
func (r *ListRepo) FindIDsOnBoard(ctx context.Context, boardID string, ids []string) ([]string, error) {
	var found []string
	err := r.db.SelectContext(ctx, &found,
		`SELECT id FROM lists WHERE board_id = $1 AND id = ANY($2)`,
		boardID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find lists on board: %w", err)
	}
	return found, nil
}

// ReorderBoard calls reorder_lists, which updates every row in one statement.
func (r *ListRepo) ReorderBoard(
	ctx context.Context,
	boardID string,
	positions []domain.ListPosition,
	actorID string,
) (int64, error) {
	ids := make([]string, len(positions))
	pos := make([]int64, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
		pos[i] = int64(p.Position)
	}

	var updated int64
	err := r.db.GetContext(ctx, &updated,
		`SELECT reorder_lists($1, $2, $3, $4)`,
		boardID, pq.Array(ids), pq.Array(pos), actorID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reorder lists: %w", err)
	}
	return updated, nil
}

// ListByBoard returns the board's lists ordered by position.
func (r *ListRepo) ListByBoard(ctx context.Context, boardID string) ([]*domain.List, error) {
	var lists []*domain.List
	err := r.db.SelectContext(ctx, &lists, `
		SELECT id, board_id, name, position, updated_by, created_at, updated_at
		FROM lists
		WHERE board_id = $1
		ORDER BY position, id
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board lists: %w", err)
	}
	return lists, nil
}
