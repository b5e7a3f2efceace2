// Package watchserver implements `basm watch`: polling a BASM source
// file for changes, recompiling under a fresh session on each change,
// and pushing the latest rendered output to connected browsers over a
// WebSocket, grounded on the teacher's internal/network websocket
// server shape (gorilla/websocket, a broadcast channel per server) and
// run alongside the poll loop with golang.org/x/sync/errgroup.
package watchserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const pollInterval = 300 * time.Millisecond

// Compiler renders a BASM source file's current contents into the text
// a client should see (the plain .bf text, or an --art-wrapped
// rendering). Returning an error pushes an "ERROR: ..." frame instead
// of closing connections, so a client survives a typo-fix cycle.
type Compiler func(source []byte) (string, error)

// Server watches path, recompiles with compile on every detected
// change, and serves the latest render to WebSocket clients.
type Server struct {
	Path    string
	Addr    string
	Compile Compiler
	Logger  *log.Logger

	mu       sync.Mutex
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]uuid.UUID
	latest   string
}

// New builds a watch Server. logger may be nil, in which case a
// "[basm] "-prefixed logger writing to stderr is used, matching the
// rest of the toolchain's logging.
func New(path, addr string, compile Compiler, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[basm] ", 0)
	}
	return &Server{
		Path:    path,
		Addr:    addr,
		Compile: compile,
		Logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]uuid.UUID),
	}
}

// Run starts the poll loop and the HTTP+WebSocket server concurrently,
// tearing both down together on first error or when ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleIndex)
	httpServer := &http.Server{Addr: s.Addr, Handler: mux}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		s.Logger.Printf("watching %s, serving on http://%s", s.Path, s.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return s.pollLoop(ctx)
	})

	return g.Wait()
}

// pollLoop recompiles once immediately, then on every detected mtime
// change, serialized by construction: it never starts a new compile
// before the previous one (and the broadcast it triggers) completes.
func (s *Server) pollLoop(ctx context.Context) error {
	var lastMod time.Time
	s.recompile()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(s.Path)
			if err != nil {
				s.broadcast(fmt.Sprintf("ERROR: %v", err))
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				s.recompile()
			}
		}
	}
}

func (s *Server) recompile() {
	src, err := os.ReadFile(s.Path)
	if err != nil {
		s.broadcast(fmt.Sprintf("ERROR: %v", err))
		return
	}
	rendered, err := s.Compile(src)
	if err != nil {
		s.broadcast(fmt.Sprintf("ERROR: %v", err))
		return
	}
	s.mu.Lock()
	s.latest = rendered
	s.mu.Unlock()
	s.broadcast(rendered)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	clientID := uuid.New()
	s.mu.Lock()
	s.clients[conn] = clientID
	latest := s.latest
	s.mu.Unlock()
	s.Logger.Printf("client %s connected", clientID)

	if latest != "" {
		conn.WriteMessage(websocket.TextMessage, []byte(latest))
	}

	// Drain the connection until it closes so ReadMessage reports a
	// close frame and we can deregister the client.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
			s.Logger.Printf("client %s disconnected", clientID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcast(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, id := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			conn.Close()
			delete(s.clients, conn)
			s.Logger.Printf("client %s dropped: %v", id, err)
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, indexPage)
}

const indexPage = `<!doctype html>
<html>
<head><title>basm watch</title></head>
<body>
<pre id="out">connecting...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => { document.getElementById("out").textContent = ev.data; };
</script>
</body>
</html>
`
