package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type miss struct {
	path     string
	referrer string
	at       time.Time
}

// MissRecorder decouples miss recording from the request path: Enqueue never
// blocks and a failure to record never fails the response. Entries are
// dropped with a warning when the buffer is full.
type MissRecorder struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	clientErrors *ClientErrors
	logger       *logrus.Entry
	ch           chan miss
}

// NewMissRecorder creates a recorder with the given buffer size.
func NewMissRecorder(clientErrors *ClientErrors, bufferSize int, logger *logrus.Entry) *MissRecorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MissRecorder{
		ctx:          ctx,
		cancel:       cancel,
		clientErrors: clientErrors,
		logger:       logger.WithField("component", "miss-recorder"),
		ch:           make(chan miss, bufferSize),
	}
}

// Start launches the single writer goroutine.
func (r *MissRecorder) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case m := <-r.ch:
				if err := r.clientErrors.RecordMiss(m.path, m.referrer, m.at); err != nil {
					r.logger.Errorf("Failed to record miss for %q: %v", m.path, err)
				}
			case <-r.ctx.Done():
				r.drain()
				return
			}
		}
	}()
}

// Stop stops the worker after draining queued entries.
func (r *MissRecorder) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Enqueue queues one miss. Non-blocking; drops on overflow.
func (r *MissRecorder) Enqueue(path, referrer string, at time.Time) {
	select {
	case r.ch <- miss{path: path, referrer: referrer, at: at}:
	default:
		r.logger.Warnf("Buffer full, dropping miss for %q", path)
	}
}

func (r *MissRecorder) drain() {
	for {
		select {
		case m := <-r.ch:
			if err := r.clientErrors.RecordMiss(m.path, m.referrer, m.at); err != nil {
				r.logger.Errorf("Failed to record miss for %q during drain: %v", m.path, err)
			}
		default:
			return
		}
	}
}
