package vfsfs_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/vfsfs"
	"github.com/kuleuven/nfs4xattr/vfs/vfstest"
	"github.com/kuleuven/vfs/runas"
	"github.com/pkg/xattr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mount serves a fresh directory as the current user, or skips the test
// when the host cannot store user attributes there.
func mount(t *testing.T, namespace string) (*vfsfs.FS, string) {
	if runtime.GOOS != "linux" {
		t.Skip("kuleuven/vfs native filesystems need linux")
	}

	dir := t.TempDir()

	check := filepath.Join(dir, ".check")
	require.NoError(t, os.WriteFile(check, nil, 0o600))

	if err := xattr.Set(check, "user.check", []byte("1")); err != nil {
		t.Skipf("user attributes not supported in %s: %v", dir, err)
	}

	require.NoError(t, os.Remove(check))

	fs, err := vfsfs.Mount(context.Background(), "vfs", dir, namespace, &runas.User{
		UID: uint32(os.Getuid()),
		GID: uint32(os.Getgid()),
	})
	if err != nil {
		t.Skipf("cannot mount %s: %v", dir, err)
	}

	t.Cleanup(func() {
		fs.Close()
	})

	return fs, dir
}

func TestModule(t *testing.T) {
	fs, dir := mount(t, "")

	var n atomic.Int64

	vfstest.TestModule(t, fs, func(t *testing.T) []byte {
		name := "file" + strconv.FormatInt(n.Add(1), 10)

		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))

		key, err := fs.Key("/" + name)
		require.NoError(t, err)

		return key
	}, vfstest.Options{})
}

func TestRoot(t *testing.T) {
	fs, _ := mount(t, "")

	key, err := fs.Key("/")
	require.NoError(t, err)

	assert.Equal(t, fs.Root(), key)
	assert.True(t, fs.Capabilities().Has(vfs.CapXattr|vfs.CapBlocking))
}

func TestNamespace(t *testing.T) {
	fs, dir := mount(t, "user.app.")

	p := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(p, nil, 0o600))
	require.NoError(t, xattr.Set(p, "user.other", []byte("x")))

	key, err := fs.Key("/file")
	require.NoError(t, err)

	h := vfstest.NewHarness(t, fs)
	oh := h.Open(t, key)

	require.Equal(t, vfs.OK, h.Set(oh, "visible", "v", vfs.SetxattrCreate))

	value, err := xattr.Get(p, "user.app.visible")
	require.NoError(t, err)
	assert.Equal(t, "v", string(value))

	l := h.List(oh, 0, -1)
	assert.Equal(t, vfs.OK, l.Status)
	assert.Equal(t, []string{"visible"}, l.Names)

	status, _ := h.Get(oh, "other")
	assert.Equal(t, vfs.ErrNoData, status)
}
