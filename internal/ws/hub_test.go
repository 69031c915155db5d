package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialTestWS creates a test HTTP server that upgrades to WebSocket and
// returns both sides of the connection. The caller must close the server
// and the connections.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	select {
	case serverConn := <-connCh:
		return srv, serverConn, clientConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil, nil
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

func TestAskQuestionDelivers(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	h := NewHub(0)
	if _, err := h.AddClient(7, serverConn); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	h.AskQuestion(7, "fake://launch/49", 49)

	msg := readMessage(t, clientConn)
	if msg.Type != MsgQuestion {
		t.Fatalf("message type = %q, want %q", msg.Type, MsgQuestion)
	}
	raw, _ := json.Marshal(msg.Payload)
	var q QuestionPayload
	if err := json.Unmarshal(raw, &q); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if q.Frame != 49 || q.FrameURL != "fake://launch/49" {
		t.Errorf("payload = %+v", q)
	}
	if q.YesToken != "ans:49:1" || q.NoToken != "ans:49:0" {
		t.Errorf("tokens = %q / %q", q.YesToken, q.NoToken)
	}
}

func TestSendIsScopedToUser(t *testing.T) {
	srvA, serverA, clientA := dialTestWS(t)
	defer srvA.Close()
	defer clientA.Close()
	srvB, serverB, clientB := dialTestWS(t)
	defer srvB.Close()
	defer clientB.Close()

	h := NewHub(0)
	if _, err := h.AddClient(1, serverA); err != nil {
		t.Fatalf("AddClient A: %v", err)
	}
	if _, err := h.AddClient(2, serverB); err != nil {
		t.Fatalf("AddClient B: %v", err)
	}

	h.AnnounceCancelled(1)

	msg := readMessage(t, clientA)
	if msg.Type != MsgCancelled {
		t.Errorf("user 1 got %q, want %q", msg.Type, MsgCancelled)
	}

	clientB.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := clientB.ReadMessage(); err == nil {
		t.Error("user 2 received a message meant for user 1")
	}
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	srvA, serverA, clientA := dialTestWS(t)
	defer srvA.Close()
	defer clientA.Close()
	srvB, serverB, clientB := dialTestWS(t)
	defer srvB.Close()
	defer clientB.Close()

	h := NewHub(0)
	h.AddClient(7, serverA)
	h.AddClient(7, serverB)

	h.AnnounceNoActiveSearch(7)

	for _, conn := range []*websocket.Conn{clientA, clientB} {
		msg := readMessage(t, conn)
		if msg.Type != MsgNoActiveSearch {
			t.Errorf("got %q, want %q", msg.Type, MsgNoActiveSearch)
		}
	}
}

func TestMaxConnections(t *testing.T) {
	const maxConns = 2
	h := NewHub(maxConns)

	var servers []*httptest.Server
	defer func() {
		for _, srv := range servers {
			srv.Close()
		}
	}()

	for i := 0; i < maxConns; i++ {
		srv, serverConn, _ := dialTestWS(t)
		servers = append(servers, srv)
		if _, err := h.AddClient(int64(i), serverConn); err != nil {
			t.Fatalf("AddClient[%d]: %v", i, err)
		}
	}

	srv, serverConn, _ := dialTestWS(t)
	servers = append(servers, srv)
	_, err := h.AddClient(99, serverConn)
	if !errors.Is(err, ErrTooManyConnections) {
		t.Fatalf("AddClient over limit: err = %v, want ErrTooManyConnections", err)
	}
	if got := h.ClientCount(); got != maxConns {
		t.Errorf("ClientCount = %d, want %d", got, maxConns)
	}
}

func TestWritePumpRemovesClientOnWriteError(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	h := NewHub(0)
	c, err := h.AddClient(7, serverConn)
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	// Close the underlying connection so the next write fails.
	serverConn.Close()
	c.send <- []byte(`{"type":"cancelled"}`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client not removed after write error; ClientCount = %d", h.ClientCount())
}

func TestRemoveClientTwiceIsSafe(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	h := NewHub(0)
	c, err := h.AddClient(7, serverConn)
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	h.RemoveClient(c)
	h.RemoveClient(c)
	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}
