// Package remotefs sketches the remote port backend (component K): an
// async-only fs.Filesystem whose operations are RPC envelopes sent over a
// symmetric message Port, one outbound message per call correlated to
// exactly one inbound reply. Grounded on jacobsa/fuse's MessageProvider
// pattern (in-message/out-message pairs pooled and dispatched by the
// kernel connection) and on rclone/lib/pacer's request-wrapping style,
// adapted from a kernel-facing protocol to an arbitrary in-process or
// cross-process message port. This backend is async-only per spec.md
// §4.K; vfs/asyncfs is what gives it a synchronous face.
package remotefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/filetree/vfscore/fs"
)

// DefaultTimeout is the bounded per-request wait spec.md §4.K specifies;
// a request that doesn't get a reply within this window raises EIO.
const DefaultTimeout = time.Second

// Envelope is one RPC request: a correlation id, the method name, and its
// argument tuple, exactly as spec.md §4.K describes.
type Envelope struct {
	ID     uint64
	Method string
	Args   []any
}

// Reply is the corresponding response: either a result or a structurally
// replayed error.
type Reply struct {
	ID     uint64
	Result any
	Err    *fs.Error
}

// Port is the symmetric message channel: one postMessage-shaped Send, and
// callers push inbound Replies back in via Table's Deliver.
type Port interface {
	Send(Envelope) error
}

// Table correlates outbound Envelopes with their eventual inbound Reply,
// the same role jacobsa/fuse's connection dispatch loop plays between
// kernel requests and worker goroutines, generalized from a fixed kernel
// ABI to an arbitrary method-name dispatch.
type Table struct {
	port Port

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Reply
}

// NewTable builds a correlation table dispatching requests over port.
func NewTable(port Port) *Table {
	return &Table{port: port, pending: make(map[uint64]chan Reply)}
}

// Deliver routes an inbound Reply to its waiting caller. A reply for an
// unknown (already-timed-out, or never-issued) id is silently dropped.
func (t *Table) Deliver(reply Reply) {
	t.mu.Lock()
	ch, ok := t.pending[reply.ID]
	if ok {
		delete(t.pending, reply.ID)
	}
	t.mu.Unlock()
	if ok {
		ch <- reply
	}
}

// Call sends method(args...) over the port and blocks for its reply, up to
// timeout. A timeout or context cancellation both surface as EIO, per
// spec.md §4.K's "a bounded per-request timeout raises EIO".
func (t *Table) Call(ctx context.Context, timeout time.Duration, method string, args ...any) (any, error) {
	id := atomic.AddUint64(&t.nextID, 1)
	ch := make(chan Reply, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	if err := t.port.Send(Envelope{ID: id, Method: method, Args: args}); err != nil {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, fs.NewError(fs.EIO, method, "", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		if reply.Err != nil {
			return nil, reply.Err
		}
		return reply.Result, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, fs.NewError(fs.EIO, method, "", ctx.Err())
	case <-timer.C:
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, fs.NewError(fs.EIO, method, "", fmt.Errorf("timed out after %s", timeout))
	}
}

// FS is the async-only fs.Filesystem backed by a remote Port. Every method
// is a thin Call wrapper; the type assertions back from `any` are the
// price of a single generic Call primitive instead of one bespoke RPC
// shape per method.
type FS struct {
	name    string
	uuid    string
	label   string
	table   *Table
	timeout time.Duration
}

// New builds a remote-port-backed filesystem dispatching calls over port.
func New(name, uuid string, port Port, timeout time.Duration) *FS {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FS{name: name, uuid: uuid, table: NewTable(port), timeout: timeout}
}

// Deliver forwards an inbound Reply from the transport to the waiting call.
func (f *FS) Deliver(reply Reply) { f.table.Deliver(reply) }

func (f *FS) Name() string { return f.name }
func (f *FS) UUID() string { return f.uuid }
func (f *FS) Label() string { return f.label }

func (f *FS) SetLabel(label string) error {
	_, err := f.table.Call(context.Background(), f.timeout, "setLabel", label)
	if err != nil {
		return err
	}
	f.label = label
	return nil
}

func (f *FS) ReadOnly() bool        { return false }
func (f *FS) NoAtime() bool         { return false }
func (f *FS) CaseFold() fs.CaseFold { return fs.CaseFoldNone }

func (f *FS) call(ctx context.Context, method string, args ...any) (any, error) {
	return f.table.Call(ctx, f.timeout, method, args...)
}

func (f *FS) Stat(ctx context.Context, path string) (fs.Stats, error) {
	v, err := f.call(ctx, "stat", path)
	if err != nil {
		return fs.Stats{}, err
	}
	return v.(fs.Stats), nil
}

func (f *FS) Exists(ctx context.Context, path string) bool {
	_, err := f.Stat(ctx, path)
	return err == nil
}

func (f *FS) Touch(ctx context.Context, path string, attrs fs.SetAttrs) error {
	_, err := f.call(ctx, "touch", path, attrs)
	return err
}

func (f *FS) CreateFile(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	v, err := f.call(ctx, "createFile", path, mode, uid, gid)
	if err != nil {
		return fs.Stats{}, err
	}
	return v.(fs.Stats), nil
}

func (f *FS) Unlink(ctx context.Context, path string) error {
	_, err := f.call(ctx, "unlink", path)
	return err
}

func (f *FS) Rmdir(ctx context.Context, path string) error {
	_, err := f.call(ctx, "rmdir", path)
	return err
}

func (f *FS) Mkdir(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	v, err := f.call(ctx, "mkdir", path, mode, uid, gid)
	if err != nil {
		return fs.Stats{}, err
	}
	return v.(fs.Stats), nil
}

func (f *FS) Readdir(ctx context.Context, path string) ([]string, error) {
	v, err := f.call(ctx, "readdir", path)
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (f *FS) Link(ctx context.Context, existing, newPath string) error {
	_, err := f.call(ctx, "link", existing, newPath)
	return err
}

func (f *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := f.call(ctx, "rename", oldPath, newPath)
	return err
}

func (f *FS) Symlink(ctx context.Context, target, linkPath string, uid, gid uint32) (fs.Stats, error) {
	v, err := f.call(ctx, "symlink", target, linkPath, uid, gid)
	if err != nil {
		return fs.Stats{}, err
	}
	return v.(fs.Stats), nil
}

func (f *FS) Readlink(ctx context.Context, path string) (string, error) {
	v, err := f.call(ctx, "readlink", path)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *FS) Sync(ctx context.Context, path string, data []byte, attrs fs.SetAttrs) error {
	_, err := f.call(ctx, "sync", path, data, attrs)
	return err
}

func (f *FS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	v, err := f.call(ctx, "read", path, len(buf), offset)
	if err != nil {
		return 0, err
	}
	data := v.([]byte)
	return copy(buf, data), nil
}

func (f *FS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	v, err := f.call(ctx, "write", path, buf, offset)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (f *FS) Truncate(ctx context.Context, path string, size uint32) error {
	_, err := f.call(ctx, "truncate", path, size)
	return err
}

// StreamRead and StreamWrite implement the streaming surface as a single
// whole-file RPC rather than a true incremental stream: a remote port call
// is already one envelope per request-reply round trip, so there is no
// cheaper way to express "give me bytes as they arrive" over this
// transport without a streaming sub-protocol spec.md §4.K doesn't define.
func (f *FS) StreamRead(ctx context.Context, path string) (io.ReadCloser, error) {
	stats, err := f.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, stats.Size)
	if _, err := f.Read(ctx, path, buf, 0); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (f *FS) StreamWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	return &remoteWriter{fs: f, ctx: ctx, path: path}, nil
}

type remoteWriter struct {
	fs   *FS
	ctx  context.Context
	path string
	buf  bytes.Buffer
}

func (w *remoteWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *remoteWriter) Close() error {
	return w.fs.Sync(w.ctx, w.path, w.buf.Bytes(), fs.SetAttrs{})
}

var _ fs.Filesystem = (*FS)(nil)
