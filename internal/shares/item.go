package shares

import "encoding/json"

// ItemKind discriminates the payload variants a publishing client can sync.
type ItemKind string

const (
	// ItemKindSession carries the session record itself.
	ItemKindSession ItemKind = "session"
	// ItemKindMessage carries a single message of the session.
	ItemKindMessage ItemKind = "message"
	// ItemKindPart carries a message part, addressed by message and part id.
	ItemKindPart ItemKind = "part"
	// ItemKindSessionDiff carries an incremental session diff.
	ItemKindSessionDiff ItemKind = "session_diff"
	// ItemKindModel carries the model descriptor for the session.
	ItemKindModel ItemKind = "model"
)

const unknownKeySegment = "unknown"

// ShareItem is one opaque JSON record of a sync batch. Data is passed through
// untouched; the service only peeks into it to derive the merge key.
type ShareItem struct {
	Kind ItemKind        `json:"type,omitempty"`
	Key  string          `json:"key,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MergeKey derives the identity under which last-write-wins resolution groups
// items. It is total: items with missing or unparsable sub-fields degrade to
// an "unknown" segment instead of failing, so one malformed item cannot block
// the rest of its batch.
func (item ShareItem) MergeKey() string {
	if item.Key != "" {
		return item.Key
	}
	switch item.Kind {
	case ItemKindSession, ItemKindSessionDiff, ItemKindModel:
		return string(item.Kind)
	case ItemKindMessage:
		return "message/" + item.dataField("id")
	case ItemKindPart:
		return item.dataField("messageID") + "/" + item.dataField("id")
	case "":
		return unknownKeySegment
	default:
		return string(item.Kind)
	}
}

func (item ShareItem) dataField(name string) string {
	if len(item.Data) == 0 {
		return unknownKeySegment
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item.Data, &fields); err != nil {
		return unknownKeySegment
	}
	raw, ok := fields[name]
	if !ok {
		return unknownKeySegment
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return unknownKeySegment
	}
	if value == "" {
		return unknownKeySegment
	}
	return value
}
