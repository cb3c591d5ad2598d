package httpdto

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// PushEnvelope is the body Pub/Sub posts to a push endpoint.
type PushEnvelope struct {
	Message      PushMessage `json:"message" binding:"required"`
	Subscription string      `json:"subscription"`
}

// PushMessage carries a Workspace CloudEvent in binary content mode: the
// ce-* attributes hold the envelope and Data holds the base64 payload.
type PushMessage struct {
	Attributes  map[string]string `json:"attributes"`
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId"`
	PublishTime time.Time         `json:"publishTime"`
}

func (m PushMessage) Attr(key string) string {
	return m.Attributes[key]
}

// Payload decodes Data. An empty payload yields nil.
func (m PushMessage) Payload() (json.RawMessage, error) {
	if m.Data == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// EventTime parses ce-time, falling back to the publish time.
func (m PushMessage) EventTime() time.Time {
	if t, err := time.Parse(time.RFC3339Nano, m.Attr("ce-time")); err == nil {
		return t
	}
	return m.PublishTime
}
