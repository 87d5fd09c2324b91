package openfile

import (
	"strings"
	"sync"
	"testing"

	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS() *vfs.FS {
	return vfs.New(strings.NewReader(""), new(strings.Builder))
}

func TestOpenThenWriteThenRead(t *testing.T) {
	fs := newTestFS()
	v, err := fs.Open(fs.Root(), "/f", vfs.O_CREAT|vfs.O_RDWR, 0644)
	require.NoError(t, err)

	table := NewTable(8)
	id, f, err := table.Open(v, ORdwr, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	_, err = f.Seek(0, SeekSet)
	require.NoError(t, err)
	n, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestOpenFailsENFILEWhenTableFull(t *testing.T) {
	fs := newTestFS()
	table := NewTable(1)

	v1, err := fs.Open(fs.Root(), "/a", vfs.O_CREAT|vfs.O_RDWR, 0644)
	require.NoError(t, err)
	_, _, err = table.Open(v1, ORdwr, 0)
	require.NoError(t, err)

	v2, err := fs.Open(fs.Root(), "/b", vfs.O_CREAT|vfs.O_RDWR, 0644)
	require.NoError(t, err)
	_, _, err = table.Open(v2, ORdwr, 0)
	assert.ErrorIs(t, err, kerrno.ENFILE)
}

func TestWriteOnReadonlyFailsEBADF(t *testing.T) {
	fs := newTestFS()
	v, err := fs.Open(fs.Root(), "/f", vfs.O_CREAT|vfs.O_RDONLY, 0644)
	require.NoError(t, err)

	table := NewTable(8)
	_, f, err := table.Open(v, ORdonly, 0)
	require.NoError(t, err)

	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, kerrno.EBADF)
}

func TestCloseReleasesSlotOnLastRef(t *testing.T) {
	fs := newTestFS()
	v, err := fs.Open(fs.Root(), "/f", vfs.O_CREAT|vfs.O_RDWR, 0644)
	require.NoError(t, err)

	table := NewTable(8)
	id, _, err := table.Open(v, ORdwr, 0)
	require.NoError(t, err)

	table.IncRef(id)
	require.NoError(t, table.Close(id, fs))
	assert.NotNil(t, table.Get(id), "refcount 1 remaining, slot should survive")

	require.NoError(t, table.Close(id, fs))
	assert.Nil(t, table.Get(id), "last close should free the slot")
}

func TestCloseUnknownSlotFailsEBADF(t *testing.T) {
	fs := newTestFS()
	table := NewTable(8)
	assert.ErrorIs(t, table.Close(0, fs), kerrno.EBADF)
}

func TestConcurrentWritersToSharedFileAreSerialised(t *testing.T) {
	fs := newTestFS()
	v, err := fs.Open(fs.Root(), "/shared", vfs.O_CREAT|vfs.O_RDWR, 0644)
	require.NoError(t, err)

	table := NewTable(8)
	_, f, err := table.Open(v, ORdwr, 0)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := f.Write([]byte("xx"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := v.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(2*n), st.Size)
}
