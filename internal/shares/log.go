package shares

import "gorm.io/gorm"

// appendEvent persists the event and lets the storage layer assign its id.
// The insert is the atomic assign-and-persist step: a partially written event
// is never observable and two concurrent appends cannot share an id.
func appendEvent(transaction *gorm.DB, event *ShareEvent) error {
	return transaction.Create(event).Error
}

// readEventsSince returns the events of the share with an id strictly greater
// than afterEventID, oldest first. A bound of zero reads the full history.
func readEventsSince(db *gorm.DB, shareID ShareID, afterEventID int64) ([]ShareEvent, error) {
	var events []ShareEvent
	err := db.
		Where("share_id = ? AND event_id > ?", shareID.String(), afterEventID).
		Order("event_id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
