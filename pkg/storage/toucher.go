package storage

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// KeyTouchStore is the write the Toucher performs
type KeyTouchStore interface {
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

type touch struct {
	keyID string
	at    time.Time
}

// Toucher records API key usage in the background. Touches for the same key
// within the debounce interval are collapsed, and a full queue drops touches
// rather than blocking the request path. Failures are logged only.
type Toucher struct {
	store   KeyTouchStore
	recent  *lru.LRU[string, time.Time]
	queue   chan touch
	timeout time.Duration
	log     logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewToucher starts a toucher. interval <= 0 disables debouncing.
func NewToucher(store KeyTouchStore, interval time.Duration, cacheSize int, logger logrus.FieldLogger) *Toucher {
	if logger == nil {
		logger = logrus.New()
	}
	if cacheSize <= 0 {
		cacheSize = 10000
	}

	t := &Toucher{
		store:   store,
		queue:   make(chan touch, 256),
		timeout: 5 * time.Second,
		log:     logger,
	}
	if interval > 0 {
		t.recent = lru.NewLRU[string, time.Time](cacheSize, nil, interval)
	}

	t.wg.Add(1)
	go t.run()
	return t
}

// Touch queues a last_used_at update for keyID
func (t *Toucher) Touch(keyID string, at time.Time) {
	if t.recent != nil {
		if _, ok := t.recent.Get(keyID); ok {
			return
		}
		t.recent.Add(keyID, at)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.queue <- touch{keyID: keyID, at: at}:
	default:
		t.log.WithField("key_id", keyID).Debug("touch queue full, dropping last_used_at update")
	}
}

// Close stops accepting touches and waits for queued ones to be written
func (t *Toucher) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Toucher) run() {
	defer t.wg.Done()

	for tc := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		if err := t.store.TouchAPIKey(ctx, tc.keyID, tc.at); err != nil {
			t.log.WithError(err).WithField("key_id", tc.keyID).Warn("failed to update api key last_used_at")
		}
		cancel()
	}
}
