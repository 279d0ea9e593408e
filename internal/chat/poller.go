package chat

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/amarouch/ilmq/internal/bus"
	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/store"
	"go.uber.org/zap"
)

// Fetcher is the slice of the room service client the poller needs.
type Fetcher interface {
	ListChatMessages(ctx context.Context, sessionID string, after int64, limit int) ([]remote.ChatMessage, error)
}

// Poller refreshes a session's chat log on an interval. There is no push
// channel from the room service; the poller asks for everything past its
// cursor, caches it and moves the cursor forward. Fetch failures leave the
// cursor alone so nothing is skipped.
type Poller struct {
	db       *store.DB
	fetcher  Fetcher
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
}

// NewPoller creates a chat poller. interval is how often the active session's
// chat is refreshed.
func NewPoller(db *store.DB, fetcher Fetcher, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Poller {
	return &Poller{
		db:       db,
		fetcher:  fetcher,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Watch starts polling chat for the given session, replacing any previous
// watch. An empty sessionID just stops the current watch.
func (p *Poller) Watch(ctx context.Context, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.sessionID = sessionID
	if sessionID == "" {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx, sessionID)
}

// Stop halts polling.
func (p *Poller) Stop() {
	p.Watch(context.Background(), "")
}

// Session returns the session currently being watched, or "".
func (p *Poller) Session() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

func (p *Poller) loop(ctx context.Context, sessionID string) {
	// Refresh once immediately so joining a room shows chat without waiting
	// a full interval.
	p.Refresh(ctx, sessionID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Refresh(ctx, sessionID)
		case <-ctx.Done():
			return
		}
	}
}

// Refresh fetches messages past the session's cursor, caches them and
// advances the cursor. Returns the number of new messages.
func (p *Poller) Refresh(ctx context.Context, sessionID string) int {
	after := p.cursor(sessionID)
	msgs, err := p.fetcher.ListChatMessages(ctx, sessionID, after, 0)
	if err != nil {
		p.logger.Warn("chat refresh failed",
			zap.Error(err),
			zap.String("session_id", sessionID))
		return 0
	}
	if len(msgs) == 0 {
		return 0
	}

	stored := 0
	for _, m := range msgs {
		err := p.db.UpsertChatMessage(&store.ChatMessage{
			SessionID:  sessionID,
			MsgID:      strconv.FormatInt(m.ID, 10),
			SenderName: m.SenderName,
			Body:       m.Body,
			CreatedAt:  m.CreatedAt,
		})
		if err != nil {
			p.logger.Error("failed to cache chat message",
				zap.Error(err),
				zap.String("session_id", sessionID),
				zap.Int64("msg_id", m.ID))
			break
		}
		stored++
		if m.ID > after {
			after = m.ID
		}
	}
	if stored == 0 {
		return 0
	}

	if err := p.db.SetCheckpoint(cursorKey(sessionID), strconv.FormatInt(after, 10)); err != nil {
		p.logger.Error("failed to advance chat cursor", zap.Error(err))
	}
	p.bus.Publish(bus.Event{
		Kind:      "chat.message",
		Timestamp: time.Now(),
		Payload:   map[string]string{"session_id": sessionID, "count": strconv.Itoa(stored)},
	})
	return stored
}

func (p *Poller) cursor(sessionID string) int64 {
	value, err := p.db.GetCheckpoint(cursorKey(sessionID))
	if err != nil || value == "" {
		return 0
	}
	after, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return after
}

func cursorKey(sessionID string) string {
	return "chat_cursor:" + sessionID
}
