// Package container provides the open/enumerate/materialize/close contract
// over an extracted package.
package container

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sdejongh/apkdiff/pkg/extract"
	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/storage"
	"github.com/sdejongh/apkdiff/pkg/workspace"
)

// State is the lifecycle state of a Container
type State int

const (
	// StateNew is the initial state, before Open
	StateNew State = iota
	// StateOpen means members can be listed and materialized
	StateOpen
	// StateClosed is terminal
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// ErrNotOpen is returned by member access outside the Open state
var ErrNotOpen = errors.New("container is not open")

// Options configure a Container
type Options struct {
	// WorkspaceRoot is where the workspace directory is created
	WorkspaceRoot string
	Logger        logging.Logger
}

// Container is one input extracted into its own workspace
type Container struct {
	input    format.Input
	strategy *extract.Strategy
	opts     Options

	mu      sync.Mutex
	state   State
	ws      *workspace.Workspace
	store   *storage.Local
	members []string
	index   map[string]struct{}
}

// New binds input to the extraction strategy of its variant. Nothing is
// touched on disk until Open.
func New(input format.Input, strategy *extract.Strategy, opts Options) *Container {
	return &Container{input: input, strategy: strategy, opts: opts}
}

// Input returns the recognized input behind the container
func (c *Container) Input() format.Input {
	return c.input
}

// State returns the current lifecycle state
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open acquires a workspace, extracts the input into it and enumerates the
// members. On any failure the workspace is released before returning and
// the container is closed.
func (c *Container) Open(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNew {
		return fmt.Errorf("cannot open container in state %s", c.state)
	}
	if c.strategy == nil {
		c.state = StateClosed
		return &OpenError{Input: c.input.Name, Err: fmt.Errorf("no extraction strategy for %s", c.input.Variant)}
	}

	logger := logging.OrNull(c.opts.Logger).WithFields(logging.Fields{"input": c.input.Name})

	// acquisition failures match workspace.ErrAcquire, not *OpenError
	ws, err := workspace.Acquire(c.opts.WorkspaceRoot, c.input.Variant.String()+"-"+baseName(c.input.Name))
	if err != nil {
		c.state = StateClosed
		return fmt.Errorf("failed to open %s: %w", c.input.Name, err)
	}
	c.ws = ws

	defer func() {
		if err != nil {
			if relErr := c.releaseLocked(); relErr != nil {
				logger.Warn(ctx, "failed to release workspace", logging.Fields{"error": relErr.Error()})
			}
			err = &OpenError{Input: c.input.Name, Err: err}
		}
	}()

	if err := c.strategy.Extract(ctx, c.input, ws); err != nil {
		return err
	}

	store, err := storage.NewLocal(ws.Path())
	if err != nil {
		return err
	}
	members, err := store.Members(ctx)
	if err != nil {
		return err
	}

	c.store = store
	c.members = members
	c.index = make(map[string]struct{}, len(members))
	for _, m := range members {
		c.index[m] = struct{}{}
	}
	c.state = StateOpen

	logger.Debug(ctx, "container opened", logging.Fields{
		"workspace": ws.Path(),
		"members":   len(members),
	})
	return nil
}

// Close releases the workspace. It is safe after a failed Open and any
// number of times.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseLocked()
}

func (c *Container) releaseLocked() error {
	c.state = StateClosed
	c.store = nil
	if c.ws == nil {
		return nil
	}
	err := c.ws.Release()
	c.ws = nil
	return err
}

// Members returns the sorted member list computed at open time
func (c *Container) Members() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return nil, ErrNotOpen
	}
	return append([]string(nil), c.members...), nil
}

// Member resolves name to a Member
func (c *Container) Member(name string) (*Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return nil, ErrNotOpen
	}
	if _, ok := c.index[name]; !ok {
		return nil, &MemberMissingError{Input: c.input.Name, Member: name}
	}
	return &Member{container: c, name: name}, nil
}

// Materialize returns the absolute location of name inside the workspace
func (c *Container) Materialize(name string) (string, error) {
	m, err := c.Member(name)
	if err != nil {
		return "", err
	}
	return m.Path()
}

// Stat describes a member without following a symlink
func (c *Container) Stat(ctx context.Context, name string) (*storage.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return nil, ErrNotOpen
	}
	if _, ok := c.index[name]; !ok {
		return nil, &MemberMissingError{Input: c.input.Name, Member: name}
	}
	return c.store.Stat(ctx, name)
}

// Member is one enumerated entry of an open container
type Member struct {
	container *Container
	name      string
}

// Name returns the slash-separated relative path
func (m *Member) Name() string {
	return m.name
}

// Path returns the absolute location of the member. It fails once the
// owning container has closed.
func (m *Member) Path() (string, error) {
	c := m.container
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return "", ErrNotOpen
	}
	info, err := c.store.Stat(context.Background(), m.name)
	if err != nil {
		return "", err
	}
	return info.Path, nil
}

// Diff returns the names only in a, only in b, and in both, each sorted
func Diff(a, b []string) (onlyA, onlyB, both []string) {
	inB := make(map[string]struct{}, len(b))
	for _, name := range b {
		inB[name] = struct{}{}
	}
	inA := make(map[string]struct{}, len(a))
	for _, name := range a {
		inA[name] = struct{}{}
		if _, ok := inB[name]; ok {
			both = append(both, name)
		} else {
			onlyA = append(onlyA, name)
		}
	}
	for _, name := range b {
		if _, ok := inA[name]; !ok {
			onlyB = append(onlyB, name)
		}
	}
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	sort.Strings(both)
	return onlyA, onlyB, both
}

func baseName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' || name[i] == '\\' {
			return name[i+1:]
		}
	}
	return name
}
