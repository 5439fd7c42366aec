package platform

import (
	"encoding/json"
	stderrors "errors"
)

// MessageCodec encodes and decodes messages exchanged with native code.
type MessageCodec interface {
	// Encode converts a Go value to bytes for transmission to native code.
	Encode(value any) ([]byte, error)

	// Decode converts bytes received from native code to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec using JSON encoding.
type JsonCodec struct{}

// Encode serializes the value to JSON bytes.
func (c JsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes JSON bytes to a Go value.
func (c JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DefaultCodec is the codec used by method channels.
var DefaultCodec MessageCodec = JsonCodec{}

// Standard errors for channel and view operations.
var (
	// ErrChannelNotFound indicates native called a channel nobody registered.
	ErrChannelNotFound = stderrors.New("platform channel not found")

	// ErrMethodNotFound indicates the method is not implemented by the receiver.
	ErrMethodNotFound = stderrors.New("method not implemented")

	// ErrInvalidArguments indicates the arguments passed to a method were invalid.
	ErrInvalidArguments = stderrors.New("invalid arguments")

	// ErrPlatformUnavailable indicates no native bridge is installed.
	ErrPlatformUnavailable = stderrors.New("platform not available")

	// ErrViewTypeNotFound indicates no view factory is registered for a
	// component name.
	ErrViewTypeNotFound = stderrors.New("view type not registered")

	// ErrViewNotFound indicates a mutation or event named a tag with no
	// mounted view.
	ErrViewNotFound = stderrors.New("view not found")
)
