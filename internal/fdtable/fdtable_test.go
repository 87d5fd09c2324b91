package fdtable

import (
	"strings"
	"testing"

	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/openfile"
	"github.com/gokernel/kernel/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) (*vfs.FS, *openfile.Table) {
	t.Helper()
	fs := vfs.New(strings.NewReader(""), new(strings.Builder))
	return fs, openfile.NewTable(64)
}

func TestInitConsolePrePopulatesStdFds(t *testing.T) {
	fs, openTable := newTestEnv(t)
	table, err := InitConsole(16, openTable, fs.Console())
	require.NoError(t, err)

	stdin, err := table.Get(Stdin)
	require.NoError(t, err)
	assert.Equal(t, openfile.ORdonly, stdin.Mode())

	stdout, err := table.Get(Stdout)
	require.NoError(t, err)
	assert.Equal(t, openfile.OWronly, stdout.Mode())

	_, err = table.Get(Stderr)
	require.NoError(t, err)
}

func TestGetOutOfRangeFailsEBADF(t *testing.T) {
	fs, openTable := newTestEnv(t)
	table, err := InitConsole(4, openTable, fs.Console())
	require.NoError(t, err)

	_, err = table.Get(99)
	assert.ErrorIs(t, err, kerrno.EBADF)

	_, err = table.Get(3)
	assert.ErrorIs(t, err, kerrno.EBADF)
}

func TestFirstFreeSkipsOccupiedSlots(t *testing.T) {
	fs, openTable := newTestEnv(t)
	table, err := InitConsole(8, openTable, fs.Console())
	require.NoError(t, err)

	fd, err := table.FirstFree(3)
	require.NoError(t, err)
	assert.Equal(t, 3, fd)
}

func TestForkSharesUnderlyingFile(t *testing.T) {
	fs, openTable := newTestEnv(t)
	table, err := InitConsole(8, openTable, fs.Console())
	require.NoError(t, err)

	child := table.Fork(openTable)

	parentStdout, err := table.Get(Stdout)
	require.NoError(t, err)
	childStdout, err := child.Get(Stdout)
	require.NoError(t, err)
	assert.Equal(t, parentStdout.ID(), childStdout.ID())

	child.CloseAll(openTable, fs)
	_, err = table.Get(Stdout)
	assert.NoError(t, err, "parent's fd survives the child's close")
}

func TestCloseAllEmptiesEveryFd(t *testing.T) {
	fs, openTable := newTestEnv(t)
	table, err := InitConsole(8, openTable, fs.Console())
	require.NoError(t, err)

	table.CloseAll(openTable, fs)
	_, err = table.Get(Stdin)
	assert.ErrorIs(t, err, kerrno.EBADF)
}
