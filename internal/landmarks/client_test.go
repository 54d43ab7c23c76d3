package landmarks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/attention-monitor/internal/domain/face"
)

type stubFrame struct {
	data []byte
	err  error
}

func (f *stubFrame) Size() (int, int) { return 640, 480 }

func (f *stubFrame) JPEG() ([]byte, error) { return f.data, f.err }

func (f *stubFrame) Close() error { return nil }

// sidecar starts a websocket server that answers every binary message with reply.
// It counts accepted connections.
func sidecar(t *testing.T, reply func(payload []byte) string) (string, *atomic.Int32) {
	t.Helper()

	var (
		upgrader = websocket.Upgrader{}
		conns    atomic.Int32
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conns.Add(1)

		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}

			if kind != websocket.BinaryMessage {
				return
			}

			answer := reply(payload)
			if answer == "" {
				// Drop the connection without replying.
				return
			}

			if err = conn.WriteMessage(websocket.TextMessage, []byte(answer)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), &conns
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    []face.Landmarks
		wantErr error
	}{
		{
			name: "no faces",
			data: `{"faces":[]}`,
			want: []face.Landmarks{},
		},
		{
			name: "two faces in order",
			data: `{"faces":[{"points":[[0.1,0.2,0.3]]},{"points":[[0.5,0.6]]}]}`,
			want: []face.Landmarks{
				{{X: 0.1, Y: 0.2, Z: 0.3}},
				{{X: 0.5, Y: 0.6}},
			},
		},
		{
			name:    "point with one coordinate",
			data:    `{"faces":[{"points":[[0.1]]}]}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "not json",
			data:    `faces`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "sidecar error",
			data:    `{"faces":[],"error":"model not loaded"}`,
			wantErr: ErrDetection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode([]byte(tt.data))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Detect(t *testing.T) {
	t.Parallel()

	var received atomic.Value

	url, conns := sidecar(t, func(payload []byte) string {
		received.Store(string(payload))

		return `{"faces":[{"points":[[0.25,0.75,0]]}]}`
	})

	c := NewClient(url, time.Second)
	t.Cleanup(func() { _ = c.Close() })

	for range 3 {
		faces, err := c.Detect(t.Context(), &stubFrame{data: []byte("jpeg")})
		require.NoError(t, err)
		require.Len(t, faces, 1)
		require.Equal(t, face.Point{X: 0.25, Y: 0.75}, faces[0][0])
	}

	require.Equal(t, "jpeg", received.Load())
	require.Equal(t, int32(1), conns.Load(), "connection is reused")
}

func TestClient_ReconnectsAfterFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	url, conns := sidecar(t, func([]byte) string {
		if calls.Add(1) == 1 {
			return ""
		}

		return `{"faces":[]}`
	})

	c := NewClient(url, time.Second)
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Detect(t.Context(), &stubFrame{data: []byte("a")})
	require.Error(t, err)

	faces, err := c.Detect(t.Context(), &stubFrame{data: []byte("b")})
	require.NoError(t, err)
	require.Empty(t, faces)
	require.Equal(t, int32(2), conns.Load())
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	url, _ := sidecar(t, func([]byte) string {
		<-release

		return `{"faces":[]}`
	})

	c := NewClient(url, 100*time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Detect(t.Context(), &stubFrame{data: []byte("slow")})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_DialFailure(t *testing.T) {
	t.Parallel()

	c := NewClient("ws://127.0.0.1:1/landmarks", 200*time.Millisecond)

	_, err := c.Detect(t.Context(), &stubFrame{data: []byte("x")})
	require.Error(t, err)
}

func TestClient_EncodeFailure(t *testing.T) {
	t.Parallel()

	errEncode := errors.New("encode")
	c := NewClient("ws://127.0.0.1:1/landmarks", time.Second)

	_, err := c.Detect(t.Context(), &stubFrame{err: errEncode})
	require.ErrorIs(t, err, errEncode)
}

func TestClient_Closed(t *testing.T) {
	t.Parallel()

	c := NewClient("ws://127.0.0.1:1/landmarks", time.Second)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Detect(t.Context(), &stubFrame{data: []byte("x")})
	require.ErrorIs(t, err, ErrClosed)
}
