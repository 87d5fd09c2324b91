package loader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUnknownPathFailsENOENT(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Load("/bin/nope")
	assert.ErrorIs(t, err, kerrno.ENOENT)
}

func TestEchoWritesArgsSpaceJoined(t *testing.T) {
	r := NewDefaultRegistry()
	p, err := r.Load("/bin/echo")
	require.NoError(t, err)

	var out bytes.Buffer
	code := p.Entry(Env{Args: []string{"echo", "hello", "world"}, Stdout: &out})
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello world\n", out.String())
}

func TestTrueAndFalseExitCodes(t *testing.T) {
	r := NewDefaultRegistry()

	p, err := r.Load("/bin/true")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Entry(Env{}))

	p, err = r.Load("/bin/false")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Entry(Env{}))
}

func TestCatCopiesStdinToStdout(t *testing.T) {
	r := NewDefaultRegistry()
	p, err := r.Load("/bin/cat")
	require.NoError(t, err)

	var out bytes.Buffer
	code := p.Entry(Env{Stdin: strings.NewReader("piped text"), Stdout: &out})
	assert.Equal(t, 0, code)
	assert.Equal(t, "piped text", out.String())
}

func TestRegisterOverwritesExisting(t *testing.T) {
	r := NewRegistry()
	r.Register("/bin/x", Program{Entry: func(Env) int { return 1 }})
	r.Register("/bin/x", Program{Entry: func(Env) int { return 2 }})

	p, err := r.Load("/bin/x")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Entry(Env{}))
}
