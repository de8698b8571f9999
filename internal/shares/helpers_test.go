package shares

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func mustSessionID(t *testing.T, value string) SessionID {
	t.Helper()
	id, err := NewSessionID(value)
	if err != nil {
		t.Fatalf("unexpected session id error: %v", err)
	}
	return id
}

func mustShareID(t *testing.T, value string) ShareID {
	t.Helper()
	id, err := NewShareID(value)
	if err != nil {
		t.Fatalf("unexpected share id error: %v", err)
	}
	return id
}

func mustService(t *testing.T, databaseName string) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", databaseName)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := database.AutoMigrate(&Share{}, &ShareEvent{}, &ShareSnapshot{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database: database,
		Clock: func() time.Time {
			return time.Unix(1700000000, 0).UTC()
		},
		Secrets: NewUUIDSecretProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func sessionItem(t *testing.T, model string) ShareItem {
	t.Helper()
	return ShareItem{Kind: ItemKindSession, Data: mustRawJSON(t, map[string]any{"model": model})}
}

func messageItem(t *testing.T, id, role string) ShareItem {
	t.Helper()
	return ShareItem{Kind: ItemKindMessage, Data: mustRawJSON(t, map[string]any{"id": id, "role": role})}
}

func partItem(t *testing.T, messageID, id, text string) ShareItem {
	t.Helper()
	return ShareItem{Kind: ItemKindPart, Data: mustRawJSON(t, map[string]any{"messageID": messageID, "id": id, "text": text})}
}

func keyedItem(t *testing.T, key string, fields map[string]any) ShareItem {
	t.Helper()
	return ShareItem{Key: key, Data: mustRawJSON(t, fields)}
}

func mustRawJSON(t *testing.T, fields map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to marshal test payload: %v", err)
	}
	return raw
}
