package messagebus

import "encoding/json"

// SimpleMessage is the JSON-wire message type moved across both bus
// backends. Actors that want a typed payload can embed arbitrary JSON
// under Body and unmarshal it in their handler.
type SimpleMessage struct {
	TopicName string          `json:"topic"`
	Stop      bool            `json:"stop,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
}

func (m SimpleMessage) Topic() Topic        { return m.TopicName }
func (m SimpleMessage) IsStopMessage() bool { return m.Stop }

// StopMessage builds a SimpleMessage that terminates a Bus.Run loop.
func StopMessage() SimpleMessage { return SimpleMessage{Stop: true} }
