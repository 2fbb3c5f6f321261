package luasrc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/typeahead/internal/complete"
	"github.com/dshills/typeahead/internal/logger"
)

// Errors returned when loading a script.
var (
	// ErrNoCompleteFunction indicates the script defines no global
	// complete function.
	ErrNoCompleteFunction = errors.New("script defines no complete function")

	// ErrClosed indicates the provider's Lua state has been closed.
	ErrClosed = errors.New("lua provider closed")
)

// entryPoint is the global function the script must define.
const entryPoint = "complete"

// Provider runs a Lua script's complete(prefix) function per query.
//
// An LState is not safe for concurrent use; all calls serialize through
// the provider's mutex.
type Provider struct {
	mu     sync.Mutex
	name   string
	state  *lua.LState
	log    *log.Logger
	closed bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger installs a logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// New creates a provider from script source. The script runs once at
// load time and must leave a global complete function behind.
func New(name, script string, opts ...Option) (*Provider, error) {
	p := &Provider{
		name:  name,
		state: lua.NewState(),
		log:   logger.Discard("luasrc"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.state.DoString(script); err != nil {
		p.state.Close()
		return nil, fmt.Errorf("loading script %s: %w", name, err)
	}
	if _, ok := p.state.GetGlobal(entryPoint).(*lua.LFunction); !ok {
		p.state.Close()
		return nil, fmt.Errorf("script %s: %w", name, ErrNoCompleteFunction)
	}
	return p, nil
}

// NewFromFile creates a provider from a script file.
func NewFromFile(name, path string, opts ...Option) (*Provider, error) {
	p := &Provider{
		name:  name,
		state: lua.NewState(),
		log:   logger.Discard("luasrc"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.state.DoFile(path); err != nil {
		p.state.Close()
		return nil, fmt.Errorf("loading script %s: %w", path, err)
	}
	if _, ok := p.state.GetGlobal(entryPoint).(*lua.LFunction); !ok {
		p.state.Close()
		return nil, fmt.Errorf("script %s: %w", path, ErrNoCompleteFunction)
	}
	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// IsAvailable reports whether the Lua state is open.
func (p *Provider) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Complete calls the script's complete(prefix) and converts its return
// value into items.
func (p *Provider) Complete(ctx *complete.Context, done func(complete.Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		done(complete.Result{Err: ErrClosed})
		return
	}

	L := p.state
	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(entryPoint),
		NRet:    1,
		Protect: true,
	}, lua.LString(ctx.WordPrefix())); err != nil {
		p.log.Error("complete() failed", "provider", p.name, "err", err)
		done(complete.Result{Err: err})
		return
	}

	ret := L.Get(-1)
	L.Pop(1)

	table, ok := ret.(*lua.LTable)
	if !ok {
		done(complete.Result{})
		return
	}

	var items []complete.Item
	table.ForEach(func(_, v lua.LValue) {
		if item, ok := toItem(v); ok {
			items = append(items, item)
		}
	})
	done(complete.Result{Items: items})
}

// Reset clears nothing; scripts hold their own state between cycles.
func (p *Provider) Reset() {}

// Close releases the Lua state. The provider stops being available.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.state.Close()
	}
}

// toItem converts one Lua suggestion into an Item. Strings become bare
// labels; tables may carry the full field set.
func toItem(v lua.LValue) (complete.Item, bool) {
	switch lv := v.(type) {
	case lua.LString:
		return complete.Item{Label: string(lv)}, true
	case *lua.LTable:
		item := complete.Item{
			Label:      stringField(lv, "label"),
			InsertText: stringField(lv, "insert_text"),
			FilterText: stringField(lv, "filter_text"),
			SortText:   stringField(lv, "sort_text"),
			Detail:     stringField(lv, "detail"),
		}
		if item.Label == "" {
			return complete.Item{}, false
		}
		if lua.LVAsBool(lv.RawGetString("snippet")) {
			item.Format = complete.FormatSnippet
		}
		return item, true
	default:
		return complete.Item{}, false
	}
}

func stringField(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}
