package platform

import "sync"

// BridgeCall is one outbound method call seen by a RecordingBridge.
type BridgeCall struct {
	Channel string
	Method  string
	Args    any
}

// RecordingBridge is a NativeBridge that decodes and keeps every call and
// answers with Reply, or fails with Err when set.
type RecordingBridge struct {
	Reply any
	Err   error

	mu    sync.Mutex
	calls []BridgeCall
}

func (b *RecordingBridge) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	var decoded any
	if len(args) > 0 {
		decoded, _ = DefaultCodec.Decode(args)
	}
	b.mu.Lock()
	b.calls = append(b.calls, BridgeCall{Channel: channel, Method: method, Args: decoded})
	b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	return DefaultCodec.Encode(b.Reply)
}

// Calls returns the recorded calls of method, or all calls when method is
// empty.
func (b *RecordingBridge) Calls(method string) []BridgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []BridgeCall
	for _, c := range b.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// SetupTestBridge installs a RecordingBridge and synchronous dispatch, and
// registers ResetForTest with cleanup.
//
//	bridge := platform.SetupTestBridge(t.Cleanup)
func SetupTestBridge(cleanup func(func())) *RecordingBridge {
	bridge := &RecordingBridge{}
	SetNativeBridge(bridge)
	RegisterDispatch(func(cb func()) { cb() })
	cleanup(ResetForTest)
	return bridge
}
