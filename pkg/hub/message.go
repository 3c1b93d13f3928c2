// Package hub fans JSON updates out to websocket viewers of the dashboard.
// Each hub keeps a short backlog that is replayed to a viewer when it joins.
package hub

import "encoding/json"

// Message is one encoded update. Seq increases by one per published
// message and lets a viewer notice gaps after being dropped.
type Message struct {
	Seq  uint64
	Data []byte
}

func encode(v interface{}) ([]byte, error) {
	if raw, ok := v.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
