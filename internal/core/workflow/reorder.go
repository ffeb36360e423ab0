package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage"
	"github.com/vietddude/pointboard/internal/metrics"
)

// ReorderWorkflow applies a bulk position change to the lists of one board.
type ReorderWorkflow struct {
	lists storage.ListRepository
	log   *slog.Logger
}

// NewReorderWorkflow creates a new reorder workflow.
func NewReorderWorkflow(lists storage.ListRepository, log *slog.Logger) *ReorderWorkflow {
	if log == nil {
		log = slog.Default()
	}
	return &ReorderWorkflow{lists: lists, log: log}
}

// Reorder sets the position of every list in positions. Either all of them
// move or none do. actorID may be empty.
func (w *ReorderWorkflow) Reorder(
	ctx context.Context,
	boardID string,
	positions []domain.ListPosition,
	actorID string,
) error {
	const op = "workflow.Reorder"

	if err := validatePositions(op, positions); err != nil {
		metrics.ListReorders.WithLabelValues("validation").Inc()
		return err
	}

	ids := make([]string, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}

	found, err := w.lists.FindIDsOnBoard(ctx, boardID, ids)
	if err != nil {
		metrics.ListReorders.WithLabelValues("error").Inc()
		return err
	}

	if missing := difference(ids, found); len(missing) > 0 {
		metrics.ListReorders.WithLabelValues("validation").Inc()
		return apperr.Validation(op, "lists not found on board %s: %s", boardID, strings.Join(missing, ", "))
	}
	if len(found) != len(ids) {
		metrics.ListReorders.WithLabelValues("validation").Inc()
		if dups := duplicates(ids); len(dups) > 0 {
			return apperr.Validation(op, "duplicate IDs in reorder request: %s", strings.Join(dups, ", "))
		}
		return apperr.Validation(op, "count mismatch on board %s: found %d lists, supplied %d", boardID, len(found), len(ids))
	}

	metrics.ReorderBatchSize.Observe(float64(len(positions)))

	updated, err := w.lists.ReorderBoard(ctx, boardID, positions, actorID)
	if err != nil {
		metrics.ListReorders.WithLabelValues("error").Inc()
		return err
	}
	if updated != int64(len(positions)) {
		metrics.ListReorders.WithLabelValues("fatal").Inc()
		w.log.Error("Reorder updated unexpected row count",
			"board_id", boardID,
			"expected", len(positions),
			"updated", updated,
			"actor_id", actorID,
		)
		return apperr.Fatal(op, "reorder of board %s updated %d rows, expected %d", boardID, updated, len(positions))
	}

	metrics.ListReorders.WithLabelValues("ok").Inc()
	w.log.Info("Lists reordered", "board_id", boardID, "count", updated, "actor_id", actorID)
	return nil
}

func validatePositions(op string, positions []domain.ListPosition) error {
	if len(positions) == 0 {
		return apperr.Validation(op, "at least one list position is required")
	}
	for _, p := range positions {
		if p.ID == "" {
			return apperr.Validation(op, "list id is required")
		}
		if p.Position < 0 {
			return apperr.Validation(op, "position of list %s must not be negative", p.ID)
		}
	}
	return nil
}

// difference returns the ids not present in found, in request order.
func difference(ids, found []string) []string {
	ok := make(map[string]bool, len(found))
	for _, id := range found {
		ok[id] = true
	}
	seen := make(map[string]bool)
	var missing []string
	for _, id := range ids {
		if !ok[id] && !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}
	return missing
}

func duplicates(ids []string) []string {
	count := make(map[string]int, len(ids))
	var dups []string
	for _, id := range ids {
		count[id]++
		if count[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
