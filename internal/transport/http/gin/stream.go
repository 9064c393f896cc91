package httpgin

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-checkout/internal/service"
)

const streamHeartbeat = 25 * time.Second

// Hub fans inventory changes out to the SSE streams of one instance. A
// subscriber that has not drained its previous signal gets only one; it
// re-reads availability anyway.
type Hub struct {
	mu   sync.Mutex
	subs map[int64]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[chan struct{}]struct{})}
}

// InventoryChanged wakes every stream watching eventID.
func (h *Hub) InventoryChanged(_ context.Context, eventID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[eventID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Subscribe(eventID int64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[chan struct{}]struct{})
	}
	h.subs[eventID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[eventID], ch)
		if len(h.subs[eventID]) == 0 {
			delete(h.subs, eventID)
		}
	}
}

func (h *Hub) Subscribers(eventID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[eventID])
}

// @Summary  Stream availability changes
// @Description Server-sent events. Each "availability" event carries the
// @Description per-type status counts; clients re-fetch the layout for detail.
// @Param    id  path  int  true  "Event ID"
// @Produce  text/event-stream
// @Success  200
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/stream [get]
func handleStream(svcs *service.Services, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		counts, err := svcs.Query.Availability(ctx, eventID)
		if err != nil {
			respondErr(c, err)
			return
		}

		changes, cancel := hub.Subscribe(eventID)
		defer cancel()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.SSEvent("availability", counts)
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case <-heartbeat.C:
				c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
				return true
			case <-changes:
				counts, err := svcs.Query.Availability(ctx, eventID)
				if err != nil {
					return false
				}
				c.SSEvent("availability", counts)
				return true
			}
		})
	}
}
