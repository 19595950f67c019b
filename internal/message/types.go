package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrUnknownAPI   = errors.New("no handler for api")
)

// Well-known api tags exchanged between the game client and the browser client.
const (
	APIUnityToJS = "unity_to_js_defaultmessage"
	APIJSToUnity = "js_to_unity_defaultmessage"
)

// Kind classifies a frame the way the transport delivered it.
type Kind int

const (
	KindText Kind = iota + 1
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is one transport message. Data is never modified after creation.
type Frame struct {
	Kind       Kind
	Data       []byte
	ReceivedAt time.Time // Local timestamp when the frame was read
}

// Text returns a text frame carrying data.
func Text(data []byte) Frame {
	return Frame{Kind: KindText, Data: data, ReceivedAt: time.Now()}
}

// Binary returns a binary frame carrying data.
func Binary(data []byte) Frame {
	return Frame{Kind: KindBinary, Data: data, ReceivedAt: time.Now()}
}

// Envelope is the default application message exchanged by peers.
type Envelope struct {
	Sender      string  `json:"sender"`
	Receiver    string  `json:"receiver"`
	API         string  `json:"api"`
	ValueString string  `json:"valueString"`
	ValueInt    int     `json:"valueInt"`
	ValueFloat  float64 `json:"valueFloat"`
	ValueBool   bool    `json:"valueBool"`
}

// Decode parses a JSON payload into an Envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if len(data) == 0 {
		return env, ErrEmptyPayload
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Encode serializes the envelope as JSON.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}
