package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/attention-monitor/internal/logger"
)

// Device plays a sound in a loop until stopped.
type Device interface {
	// Play starts looping playback of the file at path and returns once
	// playback has started. ctx bounds the playback lifetime.
	Play(ctx context.Context, path string) error
	// Stop halts playback. Stopping an idle device is a no-op.
	Stop() error
}

// Controller serializes alarm start and stop requests onto a single worker
// goroutine that owns the device, so callers never wait on audio I/O.
type Controller struct {
	// device performs the actual playback.
	device Device
	// soundPath is the audio resource played while the alarm is on.
	soundPath string
	// retryInterval is how long start requests are ignored after a failed start.
	retryInterval time.Duration
	// now returns the current time.
	now func() time.Time

	// mu protects playing, retryAt and closed.
	mu sync.Mutex
	// playing is the accepted alarm state.
	playing bool
	// retryAt is the earliest time a new start is accepted after a failure.
	retryAt time.Time
	// closed is set once Close has been called.
	closed bool

	// wake nudges the worker to reconcile the device with the accepted state.
	wake chan struct{}
	// done is closed when the worker exits.
	done chan struct{}
	// cancel stops the worker.
	cancel context.CancelFunc
	// closeOnce guards Close.
	closeOnce sync.Once
	// closeErr is the device error seen while shutting down.
	closeErr error

	// deviceOn is the device state as last driven by the worker. Worker-owned.
	deviceOn bool
}

// Option configures a Controller.
type Option func(*Controller)

// DefaultRetryInterval is the default pause after a failed playback start.
const DefaultRetryInterval = 5 * time.Second

// WithRetryInterval sets the pause after a failed playback start.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController starts the worker goroutine. The worker lives until Close is
// called or ctx is canceled; ctx also carries the logger.
func NewController(ctx context.Context, device Device, soundPath string, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(logger.WithName(ctx, "alarm"))

	c := &Controller{
		device:        device,
		soundPath:     soundPath,
		retryInterval: DefaultRetryInterval,
		now:           time.Now,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		cancel:        cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.run(ctx)

	return c
}

// RequestStart turns the alarm on. It is a no-op while the alarm is already
// playing, after Close, or within the retry interval after a failed start.
// It never blocks on the device.
func (c *Controller) RequestStart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing || c.closed || c.now().Before(c.retryAt) {
		return
	}

	c.playing = true
	c.notify()
}

// RequestStop turns the alarm off. It is a no-op when the alarm is not playing.
func (c *Controller) RequestStop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return
	}

	c.playing = false
	c.notify()
}

// IsPlaying reports the accepted alarm state.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playing
}

// Close stops an active alarm, waits for the worker to exit and returns the
// device error from the final stop, if any. It is safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.playing = false
		c.mu.Unlock()

		c.cancel()
	})

	<-c.done

	return c.closeErr
}

// notify wakes the worker without blocking. Must be called with mu held.
func (c *Controller) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
		// A wake-up is already pending; the worker reads the latest state.
	}
}

// run is the worker loop.
func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			if c.deviceOn {
				if err := c.device.Stop(); err != nil {
					c.closeErr = err
					logger.ErrorKV(ctx, "Failed to stop alarm on shutdown", "error", err)
				} else {
					logger.Info(ctx, "Alarm stopped on shutdown")
				}

				c.deviceOn = false
			}

			return
		case <-c.wake:
			c.reconcile(ctx)
		}
	}
}

// reconcile drives the device towards the accepted state.
func (c *Controller) reconcile(ctx context.Context) {
	want := c.IsPlaying()
	if want == c.deviceOn {
		return
	}

	if !want {
		if err := c.device.Stop(); err != nil {
			logger.ErrorKV(ctx, "Failed to stop alarm", "error", err)
		} else {
			logger.Info(ctx, "Alarm stopped")
		}

		c.deviceOn = false

		return
	}

	if err := c.device.Play(ctx, c.soundPath); err != nil {
		c.mu.Lock()
		c.playing = false
		c.retryAt = c.now().Add(c.retryInterval)
		c.mu.Unlock()

		logger.ErrorKV(
			ctx,
			"Alarm playback failed, continuing with visual warnings only",
			"sound_path", c.soundPath,
			"retry_in", c.retryInterval.String(),
			"error", err,
		)

		return
	}

	c.deviceOn = true

	logger.InfoKV(ctx, "Alarm started", "sound_path", c.soundPath)
}
