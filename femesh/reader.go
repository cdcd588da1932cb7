package femesh

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadCompartment reads a compartment mesh from a plain text file:
// a point count, that many "x y z" lines, an element count, and that
// many "v0 v1 v2 v3" lines with zero based vertex indices. Blank lines
// and lines starting with '#' are skipped.
func ReadCompartment(filename string) (c *Compartment, err error) {
	var file *os.File
	if file, err = os.Open(filename); err != nil {
		return nil, fmt.Errorf("unable to open mesh file %s: %w", filename, err)
	}
	defer file.Close()

	var (
		scanner = bufio.NewScanner(file)
		fields  []string
	)
	next := func() ([]string, error) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return strings.Fields(line), nil
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected end of mesh file %s", filename)
	}

	if fields, err = next(); err != nil {
		return
	}
	npoints, err := strconv.Atoi(fields[0])
	if err != nil || npoints <= 0 {
		return nil, fmt.Errorf("bad point count %q in %s", fields[0], filename)
	}
	points := make([][3]float64, npoints)
	for i := 0; i < npoints; i++ {
		if fields, err = next(); err != nil {
			return
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("point %d: expected 3 coordinates, have %d", i, len(fields))
		}
		for m := 0; m < 3; m++ {
			if points[i][m], err = strconv.ParseFloat(fields[m], 64); err != nil {
				return nil, fmt.Errorf("point %d coordinate %d: %w", i, m, err)
			}
		}
	}

	if fields, err = next(); err != nil {
		return
	}
	nelements, err := strconv.Atoi(fields[0])
	if err != nil || nelements <= 0 {
		return nil, fmt.Errorf("bad element count %q in %s", fields[0], filename)
	}
	elements := make([][4]int, nelements)
	for k := 0; k < nelements; k++ {
		if fields, err = next(); err != nil {
			return
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("element %d: expected 4 vertices, have %d", k, len(fields))
		}
		for m := 0; m < 4; m++ {
			if elements[k][m], err = strconv.Atoi(fields[m]); err != nil {
				return nil, fmt.Errorf("element %d vertex %d: %w", k, m, err)
			}
		}
	}
	return NewCompartment(points, elements)
}
