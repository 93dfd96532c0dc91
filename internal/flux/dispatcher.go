package flux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpost/internal/shared"
)

// ActionType tags an [Action].
type ActionType string

// Action is a tagged event delivered to every registered callback.
type Action struct {
	Type    ActionType
	Payload any
}

// Callback receives dispatched actions.
//
// ctx is marked as dispatching: passing it to [Dispatcher.Dispatch] is rejected with
// [shared.ErrDispatchInProgress].
type Callback func(ctx context.Context, action Action) error

// DispatchToken identifies a registered callback.
type DispatchToken string

type registration struct {
	token    DispatchToken
	callback Callback
}

type dispatchingKey struct{}

// Dispatcher delivers each action to all callbacks, in registration order, before accepting the next.
type Dispatcher struct {
	deliver sync.Mutex

	mu        sync.RWMutex
	callbacks []registration
	lastID    int

	dispatching atomic.Bool
	owner       atomic.Uint64 // goroutine running the current pass, 0 when idle
	logger      *log.Logger
}

// NewDispatcher creates an empty dispatcher. A nil logger discards output.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Dispatcher{logger: shared.WithLogger(logger, "component", "dispatcher")}
}

// Register appends cb and returns its token.
func (d *Dispatcher) Register(cb Callback) DispatchToken {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastID++
	token := DispatchToken(fmt.Sprintf("ID_%d", d.lastID))
	d.callbacks = append(d.callbacks, registration{token: token, callback: cb})
	return token
}

// Unregister removes the callback for token. Unknown tokens are ignored.
func (d *Dispatcher) Unregister(token DispatchToken) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range d.callbacks {
		if r.token == token {
			d.callbacks = append(d.callbacks[:i:i], d.callbacks[i+1:]...)
			return
		}
	}
}

// IsDispatching reports whether a delivery pass is running.
func (d *Dispatcher) IsDispatching() bool {
	return d.dispatching.Load()
}

// Dispatch delivers action to every callback registered when the pass starts.
//
// Dispatches from different goroutines wait for each other. A dispatch made during a pass
// from the goroutine running it (a callback or a store change listener) is rejected with
// [shared.ErrDispatchInProgress]. A callback that fails or panics does not stop delivery;
// all failures are returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) error {
	if owner, ok := ctx.Value(dispatchingKey{}).(*Dispatcher); ok && owner == d {
		return fmt.Errorf("%w: %s", shared.ErrDispatchInProgress, action.Type)
	}

	gid := goroutineID()
	if gid != 0 && d.owner.Load() == gid {
		return fmt.Errorf("%w: %s", shared.ErrDispatchInProgress, action.Type)
	}

	d.deliver.Lock()
	defer d.deliver.Unlock()

	d.owner.Store(gid)
	defer d.owner.Store(0)
	d.dispatching.Store(true)
	defer d.dispatching.Store(false)

	d.mu.RLock()
	callbacks := append([]registration(nil), d.callbacks...)
	d.mu.RUnlock()

	inner := context.WithValue(ctx, dispatchingKey{}, d)

	var errs []error
	for _, r := range callbacks {
		if err := d.invoke(inner, r, action); err != nil {
			d.logger.Error("callback failed", "action", action.Type, "token", r.token, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) invoke(ctx context.Context, r registration, action Action) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("callback %s panicked: %v", r.token, p)
		}
	}()
	return r.callback(ctx, action)
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the current goroutine's id from its stack header, or returns 0.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
