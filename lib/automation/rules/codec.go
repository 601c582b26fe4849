package automationrules

import (
	"encoding/json"
	"strings"

	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type conditionDoc struct {
	Type  string    `json:"type"`
	Field string    `json:"field,omitempty"`
	Op    CompareOp `json:"op,omitempty"`
	Value any       `json:"value,omitempty"`
}

type actionDoc struct {
	Type      string              `json:"type"`
	Field     string              `json:"field,omitempty"`
	Value     any                 `json:"value,omitempty"`
	UserID    string              `json:"userId,omitempty"`
	DueInDays *int                `json:"dueInDays,omitempty"`
	Note      string              `json:"note,omitempty"`
	Channel   NotificationChannel `json:"channel,omitempty"`
	Template  string              `json:"template,omitempty"`
}

// ParseCondition reads a stored condition. Empty input means Always.
// Anything unreadable becomes Malformed so the rule never fires.
func ParseCondition(raw []byte) Condition {
	if isEmptyJSON(raw) {
		return Always{}
	}
	cond, err := DecodeCondition(raw)
	if err != nil {
		return Malformed{Raw: string(raw), Reason: err.Error()}
	}
	return cond
}

// DecodeCondition is the strict form of ParseCondition used when a rule is saved.
func DecodeCondition(raw []byte) (Condition, error) {
	if isEmptyJSON(raw) {
		return Always{}, nil
	}
	doc := conditionDoc{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "condition is not a json object")
	}
	switch doc.Type {
	case "always":
		return Always{}, nil
	case "field_compare":
		if strings.TrimSpace(doc.Field) == "" {
			return nil, errors.New("condition field is required")
		}
		if !doc.Op.IsValid() {
			return nil, errors.Errorf("unknown condition operator: %q", doc.Op)
		}
		return FieldCompare{Field: doc.Field, Op: doc.Op, Value: doc.Value}, nil
	default:
		return nil, errors.Errorf("unknown condition type: %q", doc.Type)
	}
}

// ParseActions reads stored actions, skipping entries that can not be decoded.
func ParseActions(raw []byte) []Action {
	if isEmptyJSON(raw) {
		return nil
	}
	docs := []json.RawMessage{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		log.WithError(err).Warn("automation actions payload is not a list, skipped")
		return nil
	}
	result := make([]Action, 0, len(docs))
	for idx, item := range docs {
		action, err := decodeAction(item)
		if err != nil {
			log.
				WithError(err).
				WithField("action_index", idx).
				WithField("action_payload", string(item)).
				Warn("malformed automation action skipped")
			continue
		}
		result = append(result, action)
	}
	return result
}

// DecodeActions is the strict form of ParseActions: the first bad entry fails the whole list.
func DecodeActions(raw []byte) ([]Action, error) {
	docs := []json.RawMessage{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, errors.Wrap(err, "actions must be a json array")
	}
	if len(docs) == 0 {
		return nil, errors.New("at least one action is required")
	}
	result := make([]Action, 0, len(docs))
	for idx, item := range docs {
		action, err := decodeAction(item)
		if err != nil {
			return nil, errors.Wrapf(err, "action #%v", idx+1)
		}
		result = append(result, action)
	}
	return result, nil
}

func decodeAction(raw []byte) (Action, error) {
	doc := actionDoc{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "action is not a json object")
	}
	switch doc.Type {
	case "update_field":
		if strings.TrimSpace(doc.Field) == "" {
			return nil, errors.New("update_field requires field")
		}
		return UpdateField{Field: doc.Field, Value: doc.Value}, nil
	case "assign_owner":
		if strings.TrimSpace(doc.UserID) == "" {
			return nil, errors.New("assign_owner requires userId")
		}
		return AssignOwner{UserID: doc.UserID}, nil
	case "create_follow_up":
		if doc.DueInDays != nil && *doc.DueInDays < 0 {
			return nil, errors.New("dueInDays can not be negative")
		}
		return CreateFollowUp{DueInDays: doc.DueInDays, Note: doc.Note}, nil
	case "send_notification":
		if doc.Channel != ChannelEmail && doc.Channel != ChannelInApp {
			return nil, errors.Errorf("unknown notification channel: %q", doc.Channel)
		}
		return SendNotification{Channel: doc.Channel, Template: doc.Template}, nil
	default:
		return nil, errors.Errorf("unknown action type: %q", doc.Type)
	}
}

// MarshalCondition returns nil for Always, which is how "fires always" is stored.
func MarshalCondition(cond Condition) ([]byte, error) {
	switch c := cond.(type) {
	case nil, Always:
		return nil, nil
	case FieldCompare:
		return json.Marshal(conditionDoc{Type: c.conditionType(), Field: c.Field, Op: c.Op, Value: c.Value})
	case Malformed:
		return nil, errors.New("malformed condition can not be stored")
	default:
		return nil, errors.Errorf("unsupported condition %T", cond)
	}
}

func MarshalActions(actions []Action) ([]byte, error) {
	docs := make([]actionDoc, 0, len(actions))
	for _, action := range actions {
		doc := actionDoc{Type: TypeName(action)}
		switch a := action.(type) {
		case UpdateField:
			doc.Field = a.Field
			doc.Value = a.Value
		case AssignOwner:
			doc.UserID = a.UserID
		case CreateFollowUp:
			doc.DueInDays = a.DueInDays
			doc.Note = a.Note
		case SendNotification:
			doc.Channel = a.Channel
			doc.Template = a.Template
		default:
			return nil, errors.Errorf("unsupported action %T", action)
		}
		docs = append(docs, doc)
	}
	return json.Marshal(docs)
}

// DescribeAction is the action payload as it is written to logs and audit entries.
func DescribeAction(action Action) map[string]any {
	raw, err := MarshalActions([]Action{action})
	if err != nil {
		return map[string]any{"type": TypeName(action)}
	}
	docs := []map[string]any{}
	if err = json.Unmarshal(raw, &docs); err != nil || len(docs) == 0 {
		return map[string]any{"type": TypeName(action)}
	}
	return docs[0]
}

func FromRecord(rec dbmodels.AutomationRule) Rule {
	return Rule{
		ID:          rec.ID,
		SpaceID:     rec.SpaceID,
		Name:        rec.Name,
		Module:      rec.Module,
		TriggerType: rec.TriggerType,
		Condition:   ParseCondition(rec.Condition),
		Actions:     ParseActions(rec.Actions),
	}
}

func isEmptyJSON(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
