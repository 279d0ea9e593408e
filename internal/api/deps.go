package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/amarouch/ilmq/internal/bus"
	"github.com/amarouch/ilmq/internal/chat"
	"github.com/amarouch/ilmq/internal/hotseat"
	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/status"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/amarouch/ilmq/internal/syncer"
	"go.uber.org/zap"
)

// Deps is everything the control API handlers need from the daemon.
type Deps struct {
	Profile string
	DB      *store.DB
	Remote  *remote.Client
	Syncer  *syncer.Reconciler
	Hotseat *hotseat.Engine
	Chat    *chat.Poller
	Machine *status.Machine
	Bus     *bus.Bus
	Logger  *zap.Logger

	active activeSession
}

// activeSession tracks which remote room this device is currently in. The
// daemon is in at most one room at a time.
type activeSession struct {
	mu        sync.RWMutex
	sessionID string
	playerID  string
	mode      string
}

func (a *activeSession) set(sessionID, playerID, mode string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionID = sessionID
	a.playerID = playerID
	a.mode = mode
}

func (a *activeSession) clear() {
	a.set("", "", "")
}

func (a *activeSession) get() (sessionID, playerID, mode string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID, a.playerID, a.mode
}

// canEnterSession reports whether this daemon may seat itself in a new room.
// The check runs before the create/join network call: once the room service
// has seated us there is no way to give the seat back, so a doomed request
// must never leave the daemon.
func (d *Deps) canEnterSession() error {
	if sessionID, _, _ := d.active.get(); sessionID != "" {
		return fmt.Errorf("already in session %s, leave it first", sessionID)
	}
	if cur := d.Machine.Current(); cur != status.Idle {
		return fmt.Errorf("cannot join from the %s surface", cur)
	}
	return nil
}

// enterSession records the joined room, routes to the right surface and
// starts watching its chat.
func (d *Deps) enterSession(ctx context.Context, sessionID, playerID, mode, sessionState string) error {
	if err := d.Machine.Transition(status.RouteFor(sessionState)); err != nil {
		return err
	}
	d.active.set(sessionID, playerID, mode)
	d.Chat.Watch(context.WithoutCancel(ctx), sessionID)
	return nil
}

// leaveSession clears the active room and returns to the idle surface.
func (d *Deps) leaveSession() {
	d.active.clear()
	d.Chat.Stop()
	if d.Machine.Current() != status.Idle {
		if err := d.Machine.Transition(status.Idle); err != nil {
			d.Logger.Warn("route reset failed", zap.Error(err))
		}
	}
}
