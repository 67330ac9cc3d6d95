package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"github.com/wyfcoding/ore/internal/platform/store"
	"github.com/wyfcoding/ore/internal/valuation"
)

// ManifestStore narrows store.Store to what the /runs/:id handler needs.
type ManifestStore interface {
	GetRunManifest(ctx context.Context, runID string) (*store.RunManifest, error)
}

// Broadcaster fans one run's valuation.ProgressEvent stream out to every
// subscribed WebSocket connection. The driver's single progress reducer
// calls Publish once per completed trade; Subscribe/Unsubscribe are
// called from each connection's own goroutine.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan valuation.ProgressEvent]struct{}
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan valuation.ProgressEvent]struct{})}
}

// Publish fans out e to every current subscriber, dropping it for any
// subscriber whose channel is full rather than blocking the driver.
func (b *Broadcaster) Publish(e valuation.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function.
func (b *Broadcaster) Subscribe() (chan valuation.ProgressEvent, func()) {
	ch := make(chan valuation.ProgressEvent, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}
}

// Server is the run-status HTTP/WebSocket API.
type Server struct {
	engine   *gin.Engine
	store    ManifestStore
	progress map[string]*Broadcaster
	mu       sync.Mutex
}

// NewServer builds the Gin engine with logging/recovery middleware and
// the run-status routes registered.
func NewServer(s ManifestStore) *Server {
	srv := &Server{
		engine:   gin.New(),
		store:    s,
		progress: make(map[string]*Broadcaster),
	}
	srv.engine.Use(LoggingMiddleware(), RecoveryMiddleware())
	srv.engine.GET("/runs/:id", srv.getRun)
	srv.engine.GET("/runs/:id/progress", srv.getRunProgress)
	return srv
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

// BroadcasterFor returns (creating if absent) the run's progress
// broadcaster, for the CLI to wire into valuation.Driver.Progress.
func (s *Server) BroadcasterFor(runID string) *Broadcaster {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.progress[runID]
	if !ok {
		b = NewBroadcaster()
		s.progress[runID] = b
	}
	return b
}

func (s *Server) getRun(c *gin.Context) {
	m, err := s.store.GetRunManifest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) getRunProgress(c *gin.Context) {
	runID := c.Param("id")
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ch, unsubscribe := s.BroadcasterFor(runID).Subscribe()
	defer unsubscribe()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case e, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
