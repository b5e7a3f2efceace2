package watchserver

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, compile Compiler) (*Server, *httptest.Server) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.basm")
	if err := os.WriteFile(path, []byte("R0 = 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := New(path, "unused", compile, log.New(io.Discard, "", 0))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleIndex)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// waitForClientCount polls until the server has registered n clients,
// since the handshake completing on the dialer side races the
// server's own post-upgrade bookkeeping.
func waitForClientCount(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		got := len(s.clients)
		s.mu.Unlock()
		if got == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d", n)
}

func TestHandleIndexServesPage(t *testing.T) {
	_, ts := newTestServer(t, func([]byte) (string, error) { return "", nil })
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "basm watch") {
		t.Errorf("index page missing title, got: %s", body)
	}
}

func TestRecompileBroadcastsCompiledOutput(t *testing.T) {
	s, ts := newTestServer(t, func(src []byte) (string, error) {
		return string(src) + "-compiled", nil
	})
	conn := dial(t, ts)
	waitForClientCount(t, s, 1)

	s.recompile()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg) != "R0 = 1\n-compiled" {
		t.Errorf("broadcast message = %q, want %q", msg, "R0 = 1\n-compiled")
	}
}

func TestRecompileBroadcastsErrorOnCompileFailure(t *testing.T) {
	s, ts := newTestServer(t, func([]byte) (string, error) {
		return "", errBoom
	})
	conn := dial(t, ts)
	waitForClientCount(t, s, 1)

	s.recompile()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.HasPrefix(string(msg), "ERROR: ") {
		t.Errorf("broadcast message = %q, want an ERROR: prefix", msg)
	}
}

func TestHandleWSSendsLatestOnConnect(t *testing.T) {
	s, ts := newTestServer(t, func(src []byte) (string, error) {
		return "first render", nil
	})
	s.recompile()

	conn := dial(t, ts)
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg) != "first render" {
		t.Errorf("initial message = %q, want %q", msg, "first render")
	}
}

func TestHandleWSRegistersAndDeregistersClient(t *testing.T) {
	s, ts := newTestServer(t, func([]byte) (string, error) { return "", nil })
	conn := dial(t, ts)
	waitForClientCount(t, s, 1)

	conn.Close()
	waitForClientCount(t, s, 0)
}

type boomError string

func (e boomError) Error() string { return string(e) }

const errBoom = boomError("compile failed")
