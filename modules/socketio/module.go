// Package socketio connects to a Socket.IO server, optionally emits one
// event and waits for a response event. It lets recipes drive real-time
// backends the same way they drive HTTP ones.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// opResult passes the outcome through the done channel.
type opResult struct {
	value any
	err   error
}

// Invoke connects, emits 'emit_event' with 'emit_data' once connected,
// and returns the first payload received on 'on_event'. The 'timeout'
// argument bounds the whole exchange on top of the step context.
func Invoke(ctx context.Context, call *registry.Call) (any, error) {
	rawURL, err := call.String("url")
	if err != nil {
		return nil, err
	}
	namespace, err := call.StringOr("namespace", "/")
	if err != nil {
		return nil, err
	}
	onEvent, err := call.String("on_event")
	if err != nil {
		return nil, err
	}
	emitEvent, err := call.StringOr("emit_event", "")
	if err != nil {
		return nil, err
	}
	emitData, err := call.Object("emit_data")
	if err != nil {
		return nil, err
	}
	rawTimeout, err := call.StringOr("timeout", "10s")
	if err != nil {
		return nil, err
	}
	insecure, err := call.Bool("insecure_skip_verify", false)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx).With("capability", "socketio", "step", call.Step, "url", rawURL, "on_event", onEvent)
	logger.Debug("Handler started.")
	defer logger.Debug("Handler finished.")

	timeout, err := time.ParseDuration(rawTimeout)
	if err != nil {
		logger.Warn("Failed to parse timeout, using default 10s.", "timeout", rawTimeout, "error", err)
		timeout = 10 * time.Second
	}

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if insecure {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client.")
		io.Disconnect()
	}()

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Connected.", "namespace", namespace, "sid", io.Id())
		if emitEvent != "" {
			logger.Info("Emitting event.", "event", emitEvent)
			io.Emit(emitEvent, emitData)
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				done <- opResult{err: e}
				return
			}
		}
		done <- opResult{err: fmt.Errorf("socket.io connection error")}
	})

	io.On(types.EventName(onEvent), func(data ...any) {
		var payload any
		if len(data) > 0 {
			payload = data[0]
		}
		done <- opResult{value: payload}
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after connecting while waiting for event %q", onEvent)
		}
		return nil, fmt.Errorf("timed out while waiting for initial connection")
	case res := <-done:
		return res.value, res.err
	}
}

// Register registers the capability with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("socketio", registry.Func(Invoke))
}
