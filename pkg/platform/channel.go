package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/fabric/pkg/errors"
)

// MountingChannel is the channel mutation batches are mirrored on.
const MountingChannel = "fabric/mounting"

// NativeBridge is the interface to native code.
type NativeBridge interface {
	// InvokeMethod calls a method on the native side.
	InvokeMethod(channel, method string, args []byte) ([]byte, error)
}

// MethodHandler handles incoming method calls on a channel.
type MethodHandler func(method string, args any) (any, error)

// MethodChannel provides bidirectional method calls with native code.
type MethodChannel struct {
	name    string
	codec   MessageCodec
	mu      sync.RWMutex
	handler MethodHandler
}

type channelRegistry struct {
	mu       sync.RWMutex
	channels map[string]*MethodChannel
	bridge   NativeBridge
}

var registry = &channelRegistry{channels: make(map[string]*MethodChannel)}

// NewMethodChannel creates and registers a channel. Registering a name
// again replaces the earlier channel for incoming calls.
func NewMethodChannel(name string) *MethodChannel {
	ch := &MethodChannel{name: name, codec: DefaultCodec}
	registry.mu.Lock()
	registry.channels[name] = ch
	registry.mu.Unlock()
	return ch
}

// Name returns the channel name.
func (c *MethodChannel) Name() string {
	return c.name
}

// SetHandler sets the handler for incoming method calls from native code.
func (c *MethodChannel) SetHandler(handler MethodHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Invoke calls a method on the native side and returns the decoded result.
// It blocks until the native side responds.
func (c *MethodChannel) Invoke(method string, args any) (any, error) {
	registry.mu.RLock()
	bridge := registry.bridge
	registry.mu.RUnlock()
	if bridge == nil {
		return nil, ErrPlatformUnavailable
	}

	argsData, err := c.codec.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s.%s: %w", c.name, method, err)
	}
	resultData, err := bridge.InvokeMethod(c.name, method, argsData)
	if err != nil {
		return nil, err
	}
	return c.codec.Decode(resultData)
}

func (c *MethodChannel) handleCall(method string, args any) (any, error) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return nil, ErrMethodNotFound
	}
	return handler(method, args)
}

// SetNativeBridge installs the native bridge. Passing nil disconnects it.
func SetNativeBridge(bridge NativeBridge) {
	registry.mu.Lock()
	registry.bridge = bridge
	registry.mu.Unlock()
}

// HandleMethodCall is called by the bridge when native invokes a Go method.
// It returns the encoded result.
func HandleMethodCall(channel, method string, argsData []byte) ([]byte, error) {
	registry.mu.RLock()
	ch := registry.channels[channel]
	registry.mu.RUnlock()
	if ch == nil {
		return nil, ErrChannelNotFound
	}

	args, err := ch.codec.Decode(argsData)
	if err != nil {
		return nil, errors.ReportOp("platform.HandleMethodCall", errors.KindPlatform, 0,
			fmt.Errorf("decode %s.%s: %w", channel, method, err))
	}

	var result any
	func() {
		defer errors.RecoverWithCallback("platform.HandleMethodCall", func(r any) {
			err = fmt.Errorf("%s.%s panicked: %v", channel, method, r)
		})
		result, err = ch.handleCall(method, args)
	}()
	if err != nil {
		return nil, err
	}
	return ch.codec.Encode(result)
}

// ResetForTest drops every registered channel, the bridge and the dispatch
// function.
func ResetForTest() {
	registry.mu.Lock()
	registry.channels = make(map[string]*MethodChannel)
	registry.bridge = nil
	registry.mu.Unlock()
	RegisterDispatch(nil)
}
