package wsapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dialServerConn spins up a local websocket server and returns the
// server-side *websocket.Conn for direct wsConn testing, plus a
// closer to tear everything down.
func dialServerConn(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()
	connCh := make(chan *websocket.Conn, 1)
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	serverConn := <-connCh
	return serverConn, func() {
		client.Close()
		srv.Close()
	}
}

func TestWSConnSendQueuesPacket(t *testing.T) {
	conn, closer := dialServerConn(t)
	defer closer()

	wc := newWSConn(conn)
	defer wc.Close()

	dropped := wc.Send([]byte("hello"), false)
	require.False(t, dropped)
}

func TestWSConnSendDropsWhenQueueFull(t *testing.T) {
	conn, closer := dialServerConn(t)
	defer closer()

	// Build the wrapper without starting the writer goroutine so the
	// bounded channel never drains, letting us deterministically
	// exercise the full-queue drop path.
	wc := &wsConn{conn: conn, sendCh: make(chan []byte, sendQueueDepth), done: make(chan struct{})}

	for i := 0; i < sendQueueDepth; i++ {
		require.False(t, wc.Send([]byte("x"), false))
	}
	require.True(t, wc.Send([]byte("overflow"), false))
}

func TestWSConnSendDropsWhenOverByteCap(t *testing.T) {
	conn, closer := dialServerConn(t)
	defer closer()

	wc := &wsConn{conn: conn, sendCh: make(chan []byte, sendQueueDepth), done: make(chan struct{})}

	big := make([]byte, maxQueuedBytes+1)
	require.True(t, wc.Send(big, false))
}
