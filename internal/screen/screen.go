// Package screen holds the per-screen plumbing shared by the controllers:
// a mount/unmount lifetime, the in-flight flag for mutations and a
// collection that only changes on successful loads.
package screen

import (
	"context"
	"sync"

	"github.com/frahmantamala/asubt-console/internal"
)

// Lifetime is the mounted period of one screen. Requests bound to it are
// cancelled on Unmount, and responses that arrive afterwards are dropped.
type Lifetime struct {
	name string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns an unmounted lifetime for the named screen.
func New(name string) *Lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return &Lifetime{name: name, ctx: ctx, cancel: cancel}
}

// Mount starts a new lifetime under parent, ending any previous one.
func (l *Lifetime) Mount(parent context.Context) {
	ctx, cancel := context.WithCancel(internal.ContextWithScreen(parent, l.name))

	l.mu.Lock()
	prev := l.cancel
	l.ctx, l.cancel = ctx, cancel
	l.mu.Unlock()

	prev()
}

func (l *Lifetime) Unmount() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	cancel()
}

func (l *Lifetime) Name() string {
	return l.name
}

func (l *Lifetime) Context() context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx
}

func (l *Lifetime) Alive() bool {
	return l.Context().Err() == nil
}

// Bind derives a request context from ctx that is also cancelled when the
// screen unmounts. The returned token reports whether that lifetime is still
// the current one once the request returns.
func (l *Lifetime) Bind(ctx context.Context) (context.Context, *Token, context.CancelFunc) {
	owner := l.Context()
	child, cancel := context.WithCancel(internal.ContextWithScreen(ctx, l.name))
	stop := context.AfterFunc(owner, cancel)
	return child, &Token{owner: owner, lifetime: l}, func() {
		stop()
		cancel()
	}
}

// Token ties a request to the lifetime it was issued under.
type Token struct {
	owner    context.Context
	lifetime *Lifetime
}

// Current is false when the screen was unmounted or remounted since the
// request started; the caller must then discard the result.
func (t *Token) Current() bool {
	return t.owner.Err() == nil && t.lifetime.Context() == t.owner
}

// InFlight rejects a second submission of the same action while the first
// one is pending. The zero value is ready to use.
type InFlight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func (f *InFlight) Acquire(action string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, taken := f.busy[action]; taken {
		return nil, false
	}
	if f.busy == nil {
		f.busy = make(map[string]struct{})
	}
	f.busy[action] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.busy, action)
			f.mu.Unlock()
		})
	}, true
}

func (f *InFlight) Busy(action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, taken := f.busy[action]
	return taken
}

// Collection is the list a screen displays.
type Collection[T any] struct {
	mu      sync.RWMutex
	items   []T
	loaded  bool
	loading bool
}

// Items returns a copy of the displayed list in server order.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Replace swaps the list after a successful load.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]T, len(items))
	copy(c.items, items)
	c.loaded = true
}

func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *Collection[T]) SetLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
