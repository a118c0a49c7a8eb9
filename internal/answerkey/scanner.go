package answerkey

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// FrameSource yields successive still frames, from a camera or a file.
// Returning ErrStreamStopped ends the scan; any other error skips the frame.
type FrameSource interface {
	Frame() (image.Image, error)
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func() (image.Image, error)

func (f FrameFunc) Frame() (image.Image, error) { return f() }

// StaticFrame is a FrameSource that returns the same image forever.
type StaticFrame struct {
	Image image.Image
}

func (s StaticFrame) Frame() (image.Image, error) { return s.Image, nil }

// ScannerOptions tune the polling loop.
type ScannerOptions struct {
	// Interval between frames. Defaults to 100ms.
	Interval time.Duration
	// Timeout for the whole scan. Defaults to 30s.
	Timeout time.Duration
}

// Scanner polls a FrameSource until an answer key is decoded.
type Scanner struct {
	decoder *Decoder
	opts    ScannerOptions
	logger  logrus.FieldLogger
}

// NewScanner creates a scanner. A nil decoder uses NewDecoder().
func NewScanner(decoder *Decoder, opts ScannerOptions, logger logrus.FieldLogger) *Scanner {
	if decoder == nil {
		decoder = NewDecoder()
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scanner{decoder: decoder, opts: opts, logger: logger.WithField("component", "qr_scanner")}
}

// ScanTask is a running scan. It resolves exactly once, to a payload or to
// one of ErrScanCancelled, ErrStreamStopped or ErrScanTimeout.
type ScanTask struct {
	done    chan struct{}
	once    sync.Once
	cancel  context.CancelCauseFunc
	frames  atomic.Int64
	payload *Payload
	err     error

	mu             sync.Mutex
	lastPayloadErr error
}

// Start launches the polling loop in its own goroutine. Cancelling ctx has
// the same effect as calling Cancel. Timeout and cancellation take effect
// even while the source is blocked inside Frame; a frame returned after
// that is discarded.
func (s *Scanner) Start(ctx context.Context, src FrameSource) *ScanTask {
	ctx, cancel := context.WithCancelCause(ctx)
	t := &ScanTask{done: make(chan struct{}), cancel: cancel}
	go t.watch(ctx, s.opts.Timeout)
	go t.run(ctx, s, src)
	return t
}

// Scan runs a scan to completion.
func (s *Scanner) Scan(ctx context.Context, src FrameSource) (*Payload, error) {
	return s.Start(ctx, src).Wait(context.Background())
}

// Cancel aborts the scan. It is a no-op once the task has resolved.
func (t *ScanTask) Cancel() {
	t.cancel(ErrScanCancelled)
}

// Done is closed when the task resolves.
func (t *ScanTask) Done() <-chan struct{} { return t.done }

// Frames reports how many frames were pulled from the source.
func (t *ScanTask) Frames() int64 { return t.frames.Load() }

// Wait blocks until the task resolves or ctx ends. Giving up on the wait
// does not cancel the scan.
func (t *ScanTask) Wait(ctx context.Context) (*Payload, error) {
	select {
	case <-t.done:
		return t.payload, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *ScanTask) resolve(p *Payload, err error) {
	t.once.Do(func() {
		t.payload, t.err = p, err
		close(t.done)
		t.cancel(nil)
	})
}

// watch resolves the task on cancellation or timeout.
func (t *ScanTask) watch(ctx context.Context, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-ctx.Done():
		t.resolve(nil, cancelCause(ctx))
	case <-deadline.C:
		t.mu.Lock()
		last := t.lastPayloadErr
		t.mu.Unlock()
		if last != nil {
			t.resolve(nil, fmt.Errorf("%w after %s: %w", ErrScanTimeout, timeout, last))
		} else {
			t.resolve(nil, fmt.Errorf("%w after %s", ErrScanTimeout, timeout))
		}
	}
}

func (t *ScanTask) run(ctx context.Context, s *Scanner, src FrameSource) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		// A resolved or cancelled task must not pull another frame.
		if ctx.Err() != nil {
			return
		}

		t.frames.Add(1)
		payload, err := s.poll(src)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err == nil:
			s.logger.WithFields(logrus.Fields{
				"exam_id":      payload.ExamID,
				"variation_id": payload.VariationID,
				"frames":       t.frames.Load(),
			}).Info("Answer key decoded")
			t.resolve(payload, nil)
			return
		case errors.Is(err, ErrStreamStopped):
			t.resolve(nil, err)
			return
		case IsPayloadError(err):
			// Someone else's QR code in view; keep looking but remember why.
			t.mu.Lock()
			t.lastPayloadErr = err
			t.mu.Unlock()
			s.logger.WithError(err).Debug("QR code found but rejected")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scanner) poll(src FrameSource) (*Payload, error) {
	frame, err := src.Frame()
	if err != nil {
		if errors.Is(err, ErrStreamStopped) {
			return nil, err
		}
		s.logger.WithError(err).Debug("Skipping unreadable frame")
		return nil, ErrNoCodeFound
	}
	return s.decoder.DecodeImage(frame)
}

func cancelCause(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrScanCancelled) {
		return ErrScanCancelled
	}
	return fmt.Errorf("%w: %v", ErrScanCancelled, cause)
}
