package femesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCompartment(t *testing.T) {
	write := func(body string) string {
		name := filepath.Join(t.TempDir(), "mesh.txt")
		assert.NoError(t, os.WriteFile(name, []byte(body), 0644))
		return name
	}
	{
		c, err := ReadCompartment(write(`
# single reference tetrahedron
4
0 0 0
1 0 0
0 1 0
0 0 1

1
0 1 2 3
`))
		assert.NoError(t, err)
		assert.Equal(t, 4, c.Npoints())
		assert.Equal(t, 1, len(c.Elements))
		assert.InDelta(t, 1./6, c.TotalVolume(), 1.e-14)
	}
	// Truncated file
	{
		_, err := ReadCompartment(write("4\n0 0 0\n1 0 0\n"))
		assert.Error(t, err)
	}
	// Bad counts and fields
	{
		_, err := ReadCompartment(write("x\n"))
		assert.Error(t, err)
		_, err = ReadCompartment(write("1\n0 0\n"))
		assert.Error(t, err)
	}
	{
		_, err := ReadCompartment(filepath.Join(t.TempDir(), "missing.txt"))
		assert.Error(t, err)
	}
}
