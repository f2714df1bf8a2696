// Package wsapi exposes the /audio, /waterfall and /events WebSocket
// endpoints and the InitialInfo handshake (spec.md §6).
//
// Grounded directly on the teacher's websocket.go: each connection
// gets a write-mutex-guarded wrapper plus a dedicated writer goroutine
// fed by a bounded channel, so one slow client's socket write never
// blocks the scheduler thread delivering frames to everyone else. The
// teacher's single spectrum channel becomes two here (audio, waterfall)
// because a client may be a subscriber of either kind but this
// package keeps one connection type per endpoint rather than the
// teacher's one-socket-multiple-streams session model.
package wsapi

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline   = 10 * time.Second
	sendQueueDepth  = 30 // ~3s of frames at 10Hz before a client is considered slow
	maxQueuedBytes  = 1 << 20
)

// wsConn wraps one WebSocket connection with a write mutex and a
// dedicated writer goroutine draining a bounded channel, exactly the
// teacher's wsConn/startSpectrumWriter shape.
type wsConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	sendCh     chan []byte
	queuedSize int64
	queuedMu   sync.Mutex
	done       chan struct{}
}

func newWSConn(conn *websocket.Conn) *wsConn {
	wc := &wsConn{
		conn:   conn,
		sendCh: make(chan []byte, sendQueueDepth),
		done:   make(chan struct{}),
	}
	go wc.writerLoop()
	return wc
}

func (wc *wsConn) writerLoop() {
	defer close(wc.done)
	for packet := range wc.sendCh {
		wc.queuedMu.Lock()
		wc.queuedSize -= int64(len(packet))
		wc.queuedMu.Unlock()

		wc.writeMu.Lock()
		wc.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		err := wc.conn.WriteMessage(websocket.BinaryMessage, packet)
		wc.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

// Send queues packet for delivery. It never blocks: if the client is
// too slow (send buffer full, or queuing packet would put more than
// maxQueuedBytes, 1 MiB, in flight) the
// packet is dropped silently, matching spec.md §5's backpressure rule
// ("drop the frame for that subscriber, no error is raised").
func (wc *wsConn) Send(packet []byte, _ bool) (dropped bool) {
	wc.queuedMu.Lock()
	over := wc.queuedSize+int64(len(packet)) > maxQueuedBytes
	if !over {
		wc.queuedSize += int64(len(packet))
	}
	wc.queuedMu.Unlock()
	if over {
		return true
	}

	select {
	case wc.sendCh <- packet:
		return false
	default:
		wc.queuedMu.Lock()
		wc.queuedSize -= int64(len(packet))
		wc.queuedMu.Unlock()
		return true
	}
}

// SendJSON writes a text message directly (control/event traffic is
// low-rate and does not go through the bounded binary queue).
func (wc *wsConn) SendJSON(v any) error {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return wc.conn.WriteJSON(v)
}

// Close stops the writer goroutine and closes the socket.
func (wc *wsConn) Close() {
	close(wc.sendCh)
	<-wc.done
	wc.conn.Close()
}
