// Package scheduler drives cover controllers: each cover gets a goroutine that ticks it and
// serialises the requests submitted from the outside.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coverctl/cover"
)

// DefaultTick is the default interval between two ticks of a controller.
const DefaultTick = 100 * time.Millisecond

var ErrUnknownCover = errors.New("unknown cover")

type submission struct {
	req   cover.Request
	reply chan error
}

// Loop owns one controller. Only the Run goroutine touches the controller; readers get the
// snapshot taken after every tick.
type Loop struct {
	ctrl     *cover.Controller
	interval time.Duration
	logger   *zap.SugaredLogger
	requests chan submission

	lock  sync.RWMutex
	state cover.State
}

// NewLoop returns a loop ticking ctrl every interval.
func NewLoop(ctrl *cover.Controller, interval time.Duration, logger *zap.SugaredLogger) *Loop {
	if interval <= 0 {
		interval = DefaultTick
	}
	return &Loop{
		ctrl:     ctrl,
		interval: interval,
		logger:   logger,
		requests: make(chan submission),
		state:    ctrl.State(),
	}
}

// Name returns the name of the cover.
func (l *Loop) Name() string { return l.ctrl.Name() }

// Run sets the controller up and drives it until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.ctrl.Setup(time.Now())
	l.snapshot()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debugw("cover loop stopped")
			return nil
		case now := <-ticker.C:
			l.ctrl.Tick(now)
			l.snapshot()
		case s := <-l.requests:
			now := time.Now()
			err := l.ctrl.Control(now, s.req)
			if err == nil {
				// act on the request without waiting for the next tick
				l.ctrl.Tick(now)
			}
			l.snapshot()
			s.reply <- err
		}
	}
}

func (l *Loop) snapshot() {
	s := l.ctrl.State()
	l.lock.Lock()
	l.state = s
	l.lock.Unlock()
}

// Submit hands a request to the loop and returns the controller's verdict.
func (l *Loop) Submit(ctx context.Context, req cover.Request) error {
	s := submission{req: req, reply: make(chan error, 1)}
	select {
	case l.requests <- s:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-s.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the latest snapshot of the cover.
func (l *Loop) State() cover.State {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.state
}

// Group runs a set of loops and routes requests to them by cover name.
type Group struct {
	loops map[string]*Loop
	names []string
}

// NewGroup returns a group of loops. Cover names must be unique.
func NewGroup(loops ...*Loop) (*Group, error) {
	g := &Group{loops: make(map[string]*Loop, len(loops))}
	for _, l := range loops {
		if _, ok := g.loops[l.Name()]; ok {
			return nil, fmt.Errorf("duplicate cover %q", l.Name())
		}
		g.loops[l.Name()] = l
		g.names = append(g.names, l.Name())
	}
	sort.Strings(g.names)
	return g, nil
}

// Run runs all loops until ctx is cancelled or one of them fails.
func (g *Group) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, l := range g.loops {
		eg.Go(func() error { return l.Run(ctx) })
	}
	return eg.Wait()
}

// Names returns the cover names, sorted.
func (g *Group) Names() []string { return g.names }

// Submit hands a request to the named cover.
func (g *Group) Submit(ctx context.Context, name string, req cover.Request) error {
	l, ok := g.loops[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCover, name)
	}
	return l.Submit(ctx, req)
}

// State returns the latest snapshot of the named cover.
func (g *Group) State(name string) (cover.State, error) {
	l, ok := g.loops[name]
	if !ok {
		return cover.State{}, fmt.Errorf("%w: %s", ErrUnknownCover, name)
	}
	return l.State(), nil
}

// States returns the latest snapshots of all covers, sorted by name.
func (g *Group) States() []cover.State {
	states := make([]cover.State, 0, len(g.names))
	for _, name := range g.names {
		states = append(states, g.loops[name].State())
	}
	return states
}
