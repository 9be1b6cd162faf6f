package pipeline

import (
	"context"
	"errors"

	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

// PersistResult counts what Persist did.
type PersistResult struct {
	Inserted int
	Skipped  int
	Failed   int
}

// Persist inserts events not already in store. An event matching a stored
// id, or a stored (title, startDate) pair, is skipped and never modified.
func Persist(ctx context.Context, store storage.Store, events []*event.Event, log *logger.Logger) PersistResult {
	if log == nil {
		log = logger.Default()
	}
	var res PersistResult

	for _, evt := range events {
		fields := logger.Fields{"id": evt.ID, "title": evt.Title, "start": evt.StartDate}

		exists, err := store.Exists(ctx, evt.ID, evt.Title, evt.StartDate)
		if err != nil {
			res.Failed++
			log.Error("checking event", fields, err)
			continue
		}
		if exists {
			res.Skipped++
			log.Info("skipping duplicate", fields)
			continue
		}

		if err := store.Insert(ctx, evt); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				res.Skipped++
				log.Info("skipping duplicate", fields)
				continue
			}
			res.Failed++
			log.Error("inserting event", fields, err)
			continue
		}
		res.Inserted++
		log.Debug("inserted event", fields)
	}
	return res
}
