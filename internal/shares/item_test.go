package shares

import (
	"encoding/json"
	"testing"
)

func TestMergeKeyDerivation(t *testing.T) {
	tests := []struct {
		name string
		item ShareItem
		want string
	}{
		{
			name: "session-singleton",
			item: ShareItem{Kind: ItemKindSession, Data: json.RawMessage(`{"model":"gpt-4"}`)},
			want: "session",
		},
		{
			name: "session-diff-singleton",
			item: ShareItem{Kind: ItemKindSessionDiff, Data: json.RawMessage(`{}`)},
			want: "session_diff",
		},
		{
			name: "model-singleton",
			item: ShareItem{Kind: ItemKindModel, Data: json.RawMessage(`{}`)},
			want: "model",
		},
		{
			name: "message-with-id",
			item: ShareItem{Kind: ItemKindMessage, Data: json.RawMessage(`{"id":"msg-1"}`)},
			want: "message/msg-1",
		},
		{
			name: "message-missing-id",
			item: ShareItem{Kind: ItemKindMessage, Data: json.RawMessage(`{"role":"user"}`)},
			want: "message/unknown",
		},
		{
			name: "part-with-both-ids",
			item: ShareItem{Kind: ItemKindPart, Data: json.RawMessage(`{"messageID":"msg-1","id":"part-2"}`)},
			want: "msg-1/part-2",
		},
		{
			name: "part-missing-message-id",
			item: ShareItem{Kind: ItemKindPart, Data: json.RawMessage(`{"id":"part-2"}`)},
			want: "unknown/part-2",
		},
		{
			name: "part-missing-both",
			item: ShareItem{Kind: ItemKindPart, Data: json.RawMessage(`{}`)},
			want: "unknown/unknown",
		},
		{
			name: "explicit-key-wins",
			item: ShareItem{Kind: ItemKindMessage, Key: "custom/key", Data: json.RawMessage(`{"id":"msg-1"}`)},
			want: "custom/key",
		},
		{
			name: "explicit-key-without-kind",
			item: ShareItem{Key: "stats", Data: json.RawMessage(`{"count":1}`)},
			want: "stats",
		},
		{
			name: "unrecognized-kind",
			item: ShareItem{Kind: "usage", Data: json.RawMessage(`{}`)},
			want: "usage",
		},
		{
			name: "empty-kind-no-key",
			item: ShareItem{Data: json.RawMessage(`{"anything":true}`)},
			want: "unknown",
		},
		{
			name: "message-non-string-id",
			item: ShareItem{Kind: ItemKindMessage, Data: json.RawMessage(`{"id":42}`)},
			want: "message/unknown",
		},
		{
			name: "message-unparsable-data",
			item: ShareItem{Kind: ItemKindMessage, Data: json.RawMessage(`not-json`)},
			want: "message/unknown",
		},
		{
			name: "message-empty-data",
			item: ShareItem{Kind: ItemKindMessage},
			want: "message/unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.MergeKey(); got != tt.want {
				t.Fatalf("unexpected merge key: got %q want %q", got, tt.want)
			}
		})
	}
}

func TestShareItemRoundTripsThroughJSON(t *testing.T) {
	raw := `{"type":"message","data":{"id":"msg-1","content":"hello","nested":{"deep":true}}}`
	var item ShareItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("failed to unmarshal item: %v", err)
	}
	if item.Kind != ItemKindMessage {
		t.Fatalf("unexpected kind: %q", item.Kind)
	}

	encoded, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("failed to marshal item: %v", err)
	}
	var decoded ShareItem
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("failed to re-unmarshal item: %v", err)
	}
	if decoded.MergeKey() != "message/msg-1" {
		t.Fatalf("merge key changed across round trip: %q", decoded.MergeKey())
	}
	var fields map[string]any
	if err := json.Unmarshal(decoded.Data, &fields); err != nil {
		t.Fatalf("payload no longer parses: %v", err)
	}
	if fields["content"] != "hello" {
		t.Fatalf("payload content lost: %#v", fields)
	}
}
