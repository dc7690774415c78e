package vfs_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/memfs"
	"github.com/kuleuven/nfs4xattr/worker"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingCache logs inserts into a shared event list.
type recordingCache struct {
	events *[]string
	attrs  []vfs.Attrs
}

func (c *recordingCache) Insert(_ uint64, _ []byte, attr *vfs.Attrs) {
	*c.events = append(*c.events, "insert")
	c.attrs = append(c.attrs, *attr)
}

// queueDelegator holds submitted jobs until they are run explicitly.
type queueDelegator struct {
	jobs []func()
	err  error
	sync.Mutex
}

func (d *queueDelegator) Submit(fn func()) error {
	if d.err != nil {
		return d.err
	}

	d.Lock()
	d.jobs = append(d.jobs, fn)
	d.Unlock()

	return nil
}

func (d *queueDelegator) runAll() {
	d.Lock()
	jobs := d.jobs
	d.jobs = nil
	d.Unlock()

	for _, job := range jobs {
		job()
	}
}

type mockModule struct {
	mock.Mock
	caps vfs.Capabilities
}

func (m *mockModule) Name() string                   { return "mock" }
func (m *mockModule) Capabilities() vfs.Capabilities { return m.caps }
func (m *mockModule) Root() []byte                   { return []byte("root") }

func (m *mockModule) Dispatch(req *vfs.Request) {
	m.Called(req)
}

// onDispatch completes open and close requests and hands the others to fn.
func (m *mockModule) onDispatch(fn func(req *vfs.Request)) {
	m.On("Dispatch", mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(0).(*vfs.Request)

		switch req.Opcode {
		case vfs.OpOpen, vfs.OpClose:
			req.Complete(vfs.OK)
		default:
			fn(req)
		}
	})
}

type fixture struct {
	vfs    *vfs.VFS
	thread *vfs.Thread
	mem    *memfs.FS
}

func newMemFixture(t *testing.T, opts vfs.Options, memOpts memfs.Options) *fixture {
	t.Helper()

	mem := memfs.New("mem", memOpts)
	pool := worker.New(4)

	t.Cleanup(func() {
		pool.Close()
	})

	v, err := vfs.New(opts, nil, pool, mem)
	require.NoError(t, err)

	return &fixture{vfs: v, thread: v.NewThread(), mem: mem}
}

func (f *fixture) fh(t *testing.T, key []byte) []byte {
	fh, err := f.vfs.FH(f.mem.Name(), key)
	require.NoError(t, err)

	return fh
}

// open returns a handle to a new file, driving the thread as needed.
func (f *fixture) open(t *testing.T) *vfs.OpenHandle {
	t.Helper()

	var (
		handle *vfs.OpenHandle
		status = vfs.ErrIO
	)

	f.thread.Open(f.fh(t, f.mem.Create()), vfs.OpenPath, func(s vfs.Error, h *vfs.OpenHandle) {
		status, handle = s, h
	})

	f.thread.Drain()

	require.Equal(t, vfs.OK, status)

	return handle
}

func (f *fixture) set(t *testing.T, h *vfs.OpenHandle, name, value string) {
	t.Helper()

	status := vfs.ErrIO

	f.thread.Setxattr(h, []byte(name), [][]byte{[]byte(value)}, uint32(len(value)), vfs.SetxattrEither, 0, 0, func(s vfs.Error, _, _ *vfs.Attrs) {
		status = s
	})

	f.thread.Drain()

	require.Equal(t, vfs.OK, status)
}

type listing struct {
	names  []string
	cookie uint64
	eof    bool
	status vfs.Error
}

// list collects up to limit names after cookie; limit < 0 means no limit.
func (f *fixture) list(h *vfs.OpenHandle, cookie uint64, limit int) *listing {
	l := &listing{status: vfs.ErrIO}

	accept := func(name []byte, _ uint64) vfs.ScanAction {
		if limit >= 0 && len(l.names) == limit {
			return vfs.ScanStop
		}

		l.names = append(l.names, string(bytes.Clone(name)))

		return vfs.ScanContinue
	}

	f.thread.Listxattr(h, 0, cookie, accept, func(status vfs.Error, _ *vfs.OpenHandle, cookie uint64, eof bool, _ *vfs.Attrs) {
		l.status, l.cookie, l.eof = status, cookie, eof
	})

	f.thread.Drain()

	return l
}
