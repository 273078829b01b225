package canvasrelay

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
)

// DefaultConnectTimeout bounds how long Dial waits for the connect event.
const DefaultConnectTimeout = 15 * time.Second

// DialOptions configure the canvas connection.
type DialOptions struct {
	Namespace          string
	InsecureSkipVerify bool
	// Timeout defaults to DefaultConnectTimeout.
	Timeout time.Duration
}

// Dial connects a socket.io client to the canvas at rawURL over websocket
// and waits until the connection is established.
func Dial(ctx context.Context, rawURL string, opts DialOptions) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("component", "canvasrelay", "url", rawURL)
	logger.Info("Connecting to canvas...")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("failed to parse URL: %q needs a scheme and a host", rawURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to canvas", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Debug("Canvas connect_error event fired", "error", err)
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// SocketEmitter adapts a connected socket to an EmitFunc.
func SocketEmitter(io *socket.Socket) EmitFunc {
	return func(event string, payload any) {
		io.Emit(event, payload)
	}
}

// Close disconnects a client returned by Dial.
func Close(ctx context.Context, io *socket.Socket) {
	ctxlog.FromContext(ctx).Info("Disconnecting from canvas", "sid", io.Id())
	io.Disconnect()
}
