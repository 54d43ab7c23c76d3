package landmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/attention-monitor/internal/domain/face"
	"github.com/oshokin/attention-monitor/internal/domain/frame"
	"github.com/oshokin/attention-monitor/internal/logger"
)

// DefaultTimeout bounds one detection round trip.
const DefaultTimeout = 2 * time.Second

// minPointCoordinates is the number of coordinates every point must carry (x, y).
const minPointCoordinates = 2

var (
	// ErrMalformedResponse is returned when the sidecar reply cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed landmark response")
	// ErrDetection is returned when the sidecar reports a failure of its own.
	ErrDetection = errors.New("landmark detection failed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("landmark client is closed")
)

// response is the sidecar reply.
type response struct {
	Faces []struct {
		Points [][]float64 `json:"points"`
	} `json:"faces"`
	Error string `json:"error,omitempty"`
}

// Client is a face landmark detector backed by a websocket sidecar.
// Detect calls are serialized; the connection is dialed lazily and
// re-dialed on the next call after any failure.
type Client struct {
	// url is the sidecar websocket endpoint.
	url string
	// timeout bounds dialing and one request/reply exchange.
	timeout time.Duration
	// dialer opens connections.
	dialer *websocket.Dialer

	// mu serializes exchanges and guards conn and closed.
	mu sync.Mutex
	// conn is the live connection, nil until dialed or after a failure.
	conn *websocket.Conn
	// closed is set by Close.
	closed bool
}

// NewClient creates a client for the sidecar at url. Nothing is dialed until
// the first Detect.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		url:     url,
		timeout: timeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
	}
}

// Detect sends the frame to the sidecar and returns the faces it found, in
// the order the sidecar reported them.
func (c *Client) Detect(ctx context.Context, f frame.Frame) ([]face.Landmarks, error) {
	payload, err := f.JPEG()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	faces, err := exchange(ctx, conn, payload)
	if err != nil {
		c.drop()

		return nil, err
	}

	return faces, nil
}

// Close closes the connection. Further Detect calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	if c.conn == nil {
		return nil
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)

	err := c.conn.Close()
	c.conn = nil

	return err
}

// connect returns the live connection, dialing a new one if needed.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("dial landmark service %s: %w", c.url, err)
	}

	logger.InfoKV(ctx, "Connected to landmark service", "url", c.url)

	c.conn = conn

	return conn, nil
}

// drop discards a connection that is in an unknown state.
func (c *Client) drop() {
	if c.conn == nil {
		return
	}

	_ = c.conn.Close()
	c.conn = nil
}

// exchange performs one request/reply round trip within ctx.
func exchange(ctx context.Context, conn *websocket.Conn, payload []byte) ([]face.Landmarks, error) {
	deadline, _ := ctx.Deadline()

	// Unblock pending I/O when ctx is canceled before its deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.UnderlyingConn().SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set write deadline: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, fmt.Errorf("send frame: %w", contextError(ctx, err))
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	kind, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read landmarks: %w", contextError(ctx, err))
	}

	if kind != websocket.TextMessage {
		return nil, fmt.Errorf("%w: unexpected message type %d", ErrMalformedResponse, kind)
	}

	return Decode(data)
}

// Decode parses a sidecar reply.
func Decode(data []byte) ([]face.Landmarks, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrDetection, resp.Error)
	}

	faces := make([]face.Landmarks, 0, len(resp.Faces))

	for n, f := range resp.Faces {
		points := make(face.Landmarks, len(f.Points))

		for i, coords := range f.Points {
			if len(coords) < minPointCoordinates {
				return nil, fmt.Errorf("%w: face %d point %d has %d coordinates",
					ErrMalformedResponse, n, i, len(coords))
			}

			points[i] = face.Point{X: coords[0], Y: coords[1]}
			if len(coords) > minPointCoordinates {
				points[i].Z = coords[2]
			}
		}

		faces = append(faces, points)
	}

	return faces, nil
}

// contextError prefers the context error over the I/O error it caused.
// A network timeout is reported as context.DeadlineExceeded since the
// deadlines are taken from ctx.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return context.DeadlineExceeded
	}

	return err
}
