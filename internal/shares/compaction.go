package shares

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opMaterialize = "shares.materialize"

	reasonSnapshotLoadFailed   = "snapshot_load_failed"
	reasonEventsReadFailed     = "events_read_failed"
	reasonSnapshotDecodeFailed = "snapshot_decode_failed"
	reasonEventDecodeFailed    = "event_decode_failed"
	reasonSnapshotUpsertFailed = "snapshot_upsert_failed"
)

// materialize returns the fold of the full event history, serving the bulk of
// it from the stored snapshot and replaying only the un-compacted tail. When
// the tail is non-empty the refreshed snapshot is written back; a failed
// write degrades to a recompute on the next read and the fresh state is
// still returned.
func (service *Service) materialize(ctx context.Context, shareID ShareID) ([]ShareItem, error) {
	db := service.db.WithContext(ctx)

	state := []ShareItem{}
	var lastEventID int64

	var snapshot ShareSnapshot
	err := db.Where("share_id = ?", shareID.String()).Take(&snapshot).Error
	switch {
	case err == nil:
		state = service.decodeSnapshotState(shareID, snapshot.StateJSON)
		lastEventID = snapshot.LastEventID
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First read of the share: fold from sequence zero.
	default:
		service.logError(opMaterialize, reasonSnapshotLoadFailed, err, zap.String(fieldShareID, shareID.String()))
		return nil, newServiceError(opMaterialize, reasonSnapshotLoadFailed, err)
	}

	events, readErr := readEventsSince(db, shareID, lastEventID)
	if readErr != nil {
		service.logError(opMaterialize, reasonEventsReadFailed, readErr, zap.String(fieldShareID, shareID.String()))
		return nil, newServiceError(opMaterialize, reasonEventsReadFailed, readErr)
	}
	if len(events) == 0 {
		return state, nil
	}

	for _, event := range events {
		var items []ShareItem
		if err := json.Unmarshal([]byte(event.PayloadJSON), &items); err != nil {
			// The offending event contributes nothing to the fold; the merged
			// view stays available.
			service.logError(opMaterialize, reasonEventDecodeFailed, err,
				zap.String(fieldShareID, shareID.String()),
				zap.Int64(fieldEventID, event.EventID))
			continue
		}
		state = foldItems(state, items)
	}
	lastEventID = events[len(events)-1].EventID

	if err := service.persistSnapshot(db, shareID, state, lastEventID); err != nil {
		service.logError(opMaterialize, reasonSnapshotUpsertFailed, err, zap.String(fieldShareID, shareID.String()))
	}

	return state, nil
}

func (service *Service) persistSnapshot(db *gorm.DB, shareID ShareID, state []ShareItem, lastEventID int64) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return err
	}
	snapshot := ShareSnapshot{
		ShareID:          shareID.String(),
		StateJSON:        string(stateJSON),
		LastEventID:      lastEventID,
		UpdatedAtSeconds: service.clock().UTC().Unix(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "share_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_json", "last_event_id", "updated_at_s"}),
	}).Create(&snapshot).Error
}

func (service *Service) decodeSnapshotState(shareID ShareID, stateJSON string) []ShareItem {
	var state []ShareItem
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		service.logError(opMaterialize, reasonSnapshotDecodeFailed, err, zap.String(fieldShareID, shareID.String()))
		return []ShareItem{}
	}
	if state == nil {
		return []ShareItem{}
	}
	return state
}
