package trapframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyIsIndependent(t *testing.T) {
	f := &Frame{PC: 0x1000, SP: 0x7fff0000}
	clone := f.Copy()

	clone.PC = 0x2000
	assert.Equal(t, uint64(0x1000), f.PC)
	assert.Equal(t, uint64(0x2000), clone.PC)
}

func TestSetReturn(t *testing.T) {
	f := &Frame{}
	f.SetReturn(0, 0)
	assert.Equal(t, [2]uint64{0, 0}, f.ReturnV)
}
