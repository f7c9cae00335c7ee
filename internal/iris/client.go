package iris

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
)

// Default ports an Iris server may be listening on. When no port is given
// the client tries each in order and keeps the first that accepts.
const (
	firstPort = 7100
	lastPort  = 7104
)

// Handler receives the raw params of one event message. Handlers run
// synchronously on the goroutine that happens to be inside WaitMany when the
// event arrives; an error fails that wait.
type Handler func(params json.RawMessage) error

// Handle correlates a sent request with its future response.
type Handle uint64

// Request names one RPC to include in a batch.
type Request struct {
	Method string
	Params any
}

// Client is a connection to an Iris server. It is not safe for concurrent
// use; a single goroutine drives all sends and waits, and event handlers are
// invoked inline from that goroutine.
type Client struct {
	conn     net.Conn
	r        *bufio.Reader
	w        *bufio.Writer
	instID   uint32
	nextID   uint32
	handlers map[string]Handler
	logger   *slog.Logger
}

// Dial opens a TCP connection to an Iris server on localhost. The returned
// client must still be registered before use.
func Dial(port uint16, logger *slog.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))))
	if err != nil {
		return nil, fmt.Errorf("iris: dial port %d: %w", port, err)
	}
	return NewClient(conn, logger), nil
}

// DialAny tries the default Iris ports in order and connects to the first
// that accepts.
func DialAny(logger *slog.Logger) (*Client, error) {
	var err error
	for port := firstPort; port <= lastPort; port++ {
		var c *Client
		c, err = Dial(uint16(port), logger)
		if err == nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("iris: no server on ports %d..%d: %w", firstPort, lastPort, err)
}

// NewClient wraps an established connection. Useful for tests that provide
// their own transport.
func NewClient(conn net.Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:     conn,
		r:        bufio.NewReader(conn),
		w:        bufio.NewWriter(conn),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Close tears down the transport. Any blocked wait fails.
func (c *Client) Close() error {
	return c.conn.Close()
}

// InstanceID returns the id this client was assigned at registration, or 0
// if Register has not completed.
func (c *Client) InstanceID() uint32 {
	return c.instID
}

// Register performs the protocol handshake and registers this client as an
// instance within the simulator under name, uniquified by the server. The
// assigned instance id seeds the high word of every subsequent message id.
func (c *Client) Register(name string) (uint32, error) {
	if _, err := c.w.WriteString(clientHello); err != nil {
		return 0, fmt.Errorf("iris: handshake write: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, fmt.Errorf("iris: handshake write: %w", err)
	}
	formats, err := c.readFormats()
	if err != nil {
		return 0, err
	}
	supported := false
	for _, f := range formats {
		if f == formatName {
			supported = true
		}
	}
	if !supported {
		return 0, fmt.Errorf("iris: server does not support %s (offered %v)", formatName, formats)
	}

	var reg Instance
	err = c.Execute("instanceRegistry_registerInstance", map[string]any{
		"instName": name,
		"uniquify": true,
	}, &reg)
	if err != nil {
		return 0, fmt.Errorf("iris: register instance: %w", err)
	}
	c.instID = reg.ID
	return reg.ID, nil
}

// readFormats consumes handshake lines until the server's format banner
// appears. A closed connection before the banner fails the handshake.
func (c *Client) readFormats() ([]string, error) {
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("iris: server hung up during handshake: %w", err)
		}
		if formats, ok := parseFormats(strings.TrimRight(line, "\r\n")); ok {
			return formats, nil
		}
	}
}

// Send serializes one request onto the transport and returns immediately
// with the handle to wait on.
func (c *Client) Send(method string, params any) (Handle, error) {
	handles, err := c.SendMany([]Request{{Method: method, Params: params}})
	if err != nil {
		return 0, err
	}
	return handles[0], nil
}

// SendMany pipelines a batch of requests with a single flush. Message ids
// are (instance-id << 32) | counter; the counter increments per message and
// ids are never reused within a session.
func (c *Client) SendMany(reqs []Request) ([]Handle, error) {
	handles := make([]Handle, 0, len(reqs))
	for _, req := range reqs {
		id := uint64(c.instID)<<32 | uint64(c.nextID)
		c.nextID++
		payload, err := json.Marshal(request{
			JSONRPC: "2.0",
			Method:  req.Method,
			Params:  req.Params,
			ID:      id,
		})
		if err != nil {
			return nil, fmt.Errorf("iris: encode %s: %w", req.Method, err)
		}
		if _, err := c.w.Write(encodeFrame(payload)); err != nil {
			return nil, fmt.Errorf("iris: send %s: %w", req.Method, err)
		}
		handles = append(handles, Handle(id))
	}
	if err := c.w.Flush(); err != nil {
		return nil, fmt.Errorf("iris: flush: %w", err)
	}
	return handles, nil
}

// WaitMany reads framed messages until every handle has its response, and
// returns the raw results in the order the handles were given. Responses may
// arrive in any order; correlation is strictly by id. Events encountered
// along the way are dispatched to their registered handlers inline; events
// with no handler and responses to unknown ids are logged and dropped. An
// error response from the server fails the whole wait.
func (c *Client) WaitMany(handles []Handle) ([]json.RawMessage, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	pending := make(map[uint64]int, len(handles))
	for i, h := range handles {
		pending[uint64(h)] = i
	}
	out := make([]json.RawMessage, len(handles))
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("iris: connection closed before response: %w", err)
		}
		payload, err := decodeFrame(strings.TrimRight(line, "\r\n"))
		if err != nil {
			c.logger.Warn("dropping malformed frame", "err", err)
			continue
		}
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("iris: undecodable payload %q: %w", payload, err)
		}
		switch {
		case env.Method != "":
			if h, ok := c.handlers[env.Method]; ok {
				if err := h(env.Params); err != nil {
					return nil, err
				}
			} else {
				c.logger.Warn("unhandled event", "method", env.Method)
			}
		case env.ID != nil && len(env.Error) > 0:
			return nil, fmt.Errorf("iris: server error: %s", env.Error)
		case env.ID != nil:
			slot, ok := pending[*env.ID]
			if !ok {
				c.logger.Warn("unexpected response", "id", *env.ID)
				continue
			}
			out[slot] = env.Result
			delete(pending, *env.ID)
			if len(pending) == 0 {
				return out, nil
			}
		default:
			c.logger.Warn("message with neither id nor method", "payload", string(payload))
		}
	}
}

// Wait blocks until the response for h arrives and decodes its result into
// out, which may be nil for RPCs whose result is void.
func (c *Client) Wait(h Handle, out any) error {
	results, err := c.WaitMany([]Handle{h})
	if err != nil {
		return err
	}
	return decodeResult(results[0], out)
}

// Execute is Send followed by Wait.
func (c *Client) Execute(method string, params, out any) error {
	h, err := c.Send(method, params)
	if err != nil {
		return err
	}
	return c.Wait(h, out)
}

// Batch pipelines reqs and waits for all their responses, preserving request
// order in the returned results.
func (c *Client) Batch(reqs []Request) ([]json.RawMessage, error) {
	handles, err := c.SendMany(reqs)
	if err != nil {
		return nil, err
	}
	return c.WaitMany(handles)
}

// OnEvent installs or replaces the handler for an event method. Event
// methods are conventionally named ec_<EVENT_NAME>.
func (c *Client) OnEvent(method string, h Handler) {
	c.handlers[method] = h
}

// WaitForEvents blocks dispatching events until the transport fails,
// waiting on an id that no response can satisfy. It always returns a
// non-nil error.
func (c *Client) WaitForEvents() error {
	_, err := c.WaitMany([]Handle{Handle(0)})
	if err == nil {
		err = fmt.Errorf("iris: event wait resolved unexpectedly")
	}
	return err
}

func decodeResult(raw json.RawMessage, out any) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("iris: decode result: %w", err)
	}
	return nil
}
