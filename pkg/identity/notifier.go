package identity

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Notifier turns session-file changes into a stream of Session events.
// A sign-in from another terminal (or the web client writing the same
// file) re-activates any running collection store without a restart.
//
// Duplicate filesystem events for the same session are coalesced: a
// Session is only emitted when it differs from the last one delivered.
type Notifier struct {
	manager *Manager
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	events  chan Session
}

// NewNotifier creates a Notifier over the manager's session file. The
// watch is on the containing directory because editors and atomic writes
// replace the file rather than modify it in place.
func NewNotifier(manager *Manager, logger *zap.Logger) (*Notifier, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating session watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(manager.GetTarget())); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching session dir: %w", err)
	}

	return &Notifier{
		manager: manager,
		watcher: watcher,
		logger:  logger,
		events:  make(chan Session, 1),
	}, nil
}

// Sessions returns the channel of session-change events. The current
// session is delivered first, then one event per observed change.
func (n *Notifier) Sessions() <-chan Session {
	return n.events
}

// Run watches until the context is cancelled. It always emits the current
// session once at startup so a subscriber can treat the stream as the
// single source of identity state.
func (n *Notifier) Run(ctx context.Context) error {
	last, err := n.manager.Current()
	if err != nil {
		n.logger.Warn("reading session at watch start", zap.Error(err))
		last = Anonymous()
	}
	n.emit(ctx, last)

	target := n.manager.GetTarget()
	for {
		select {
		case <-ctx.Done():
			close(n.events)
			return ctx.Err()

		case event, ok := <-n.watcher.Events:
			if !ok {
				close(n.events)
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			current, err := n.manager.Current()
			if err != nil {
				n.logger.Warn("reading session after change", zap.Error(err))
				continue
			}
			if current == last {
				continue
			}

			n.logger.Info("session changed",
				zap.String("owner", current.OwnerID()),
			)
			last = current
			n.emit(ctx, current)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				close(n.events)
				return nil
			}
			n.logger.Warn("session watcher error", zap.Error(err))
		}
	}
}

// Close stops the underlying filesystem watcher.
func (n *Notifier) Close() error {
	return n.watcher.Close()
}

func (n *Notifier) emit(ctx context.Context, s Session) {
	select {
	case n.events <- s:
	case <-ctx.Done():
	}
}
