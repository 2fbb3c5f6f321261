package remote

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/typeahead/internal/complete"
	"github.com/dshills/typeahead/internal/logger"
)

// DefaultLimit is the per-request suggestion cap sent to the server.
const DefaultLimit = 32

// ErrProviderClosed is returned for requests after Close.
var ErrProviderClosed = errors.New("remote provider closed")

// Provider speaks the msgpack word-server protocol over a pair of
// streams, usually a subprocess's stdin/stdout.
type Provider struct {
	name  string
	limit int
	log   *log.Logger

	writeMu sync.Mutex
	enc     *msgpack.Encoder

	mu      sync.Mutex
	pending map[string]func(Response, error)
	closed  bool

	cmd      *exec.Cmd
	closeIn  io.Closer
	readDone chan struct{}
}

// Option configures a Provider.
type Option func(*Provider)

// WithLimit sets the per-request suggestion cap.
func WithLimit(n int) Option {
	return func(p *Provider) { p.limit = n }
}

// WithLogger installs a logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// New starts command as the word-server subprocess and connects to its
// stdio.
func New(name, command string, args []string, opts ...Option) (*Provider, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", command, err)
	}

	p := NewPipe(name, stdout, stdin, opts...)
	p.cmd = cmd
	p.closeIn = stdin
	return p, nil
}

// NewPipe connects to a server over explicit streams. Tests use this to
// run against an in-process fake.
func NewPipe(name string, r io.Reader, w io.Writer, opts ...Option) *Provider {
	p := &Provider{
		name:     name,
		limit:    DefaultLimit,
		log:      logger.Discard("remote"),
		enc:      msgpack.NewEncoder(w),
		pending:  make(map[string]func(Response, error)),
		readDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.readLoop(r)
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// IsAvailable reports whether the connection is open.
func (p *Provider) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Complete sends one request and invokes done when its response
// arrives. The answer is flagged incomplete when the server filled the
// requested limit.
func (p *Provider) Complete(ctx *complete.Context, done func(complete.Result)) {
	prefix := ctx.WordPrefix()
	if prefix == "" {
		done(complete.Result{})
		return
	}

	id := uuid.NewString()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		done(complete.Result{Err: ErrProviderClosed})
		return
	}
	p.pending[id] = func(resp Response, err error) {
		if err != nil {
			done(complete.Result{Err: err})
			return
		}
		if resp.Error != "" {
			done(complete.Result{Err: errors.New(resp.Error)})
			return
		}
		items := make([]complete.Item, len(resp.Suggestions))
		for i, s := range resp.Suggestions {
			items[i] = complete.Item{
				Label:    s.Word,
				SortText: fmt.Sprintf("%05d", s.Rank),
			}
		}
		done(complete.Result{Items: items, Incomplete: len(items) >= p.limit})
	}
	p.mu.Unlock()

	if err := p.send(Request{ID: id, Prefix: prefix, Limit: p.limit}); err != nil {
		p.fail(id, err)
	}
}

// Reset clears nothing; the server owns its dictionary state.
func (p *Provider) Reset() {}

// Close tears the connection down and fails every pending request.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProviderClosed
	}
	p.closed = true
	pending := p.pending
	p.pending = make(map[string]func(Response, error))
	p.mu.Unlock()

	for _, cb := range pending {
		cb(Response{}, ErrProviderClosed)
	}

	if p.closeIn != nil {
		_ = p.closeIn.Close()
	}
	if p.cmd != nil {
		<-p.readDone
		return p.cmd.Wait()
	}
	return nil
}

// send encodes one request. The encoder is not safe for concurrent
// writers.
func (p *Provider) send(req Request) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.enc.Encode(req)
}

// readLoop decodes responses and dispatches them by id until the stream
// ends.
func (p *Provider) readLoop(r io.Reader) {
	defer close(p.readDone)
	dec := msgpack.NewDecoder(r)
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Debug("decode failed", "err", err)
			}
			p.failAll(err)
			return
		}

		p.mu.Lock()
		cb := p.pending[resp.ID]
		delete(p.pending, resp.ID)
		p.mu.Unlock()

		if cb == nil {
			p.log.Debug("response for unknown request", "id", resp.ID)
			continue
		}
		cb(resp, nil)
	}
}

// fail completes one pending request with an error.
func (p *Provider) fail(id string, err error) {
	p.mu.Lock()
	cb := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()
	if cb != nil {
		cb(Response{}, err)
	}
}

// failAll completes every pending request with an error.
func (p *Provider) failAll(err error) {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[string]func(Response, error))
	p.mu.Unlock()
	for _, cb := range pending {
		cb(Response{}, err)
	}
}
