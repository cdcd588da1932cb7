// Package femesh holds the finite element mesh data model for
// multi-compartment diffusion domains: tetrahedral compartments, their
// interface facets, and the P1 matrix builders the solver composes
// into global operators. Lengths are in micrometers.
package femesh

import (
	"fmt"
	"math"

	"github.com/spinsim/btpde/utils"
)

// Exterior marks an interface that couples a compartment to the
// outside of the domain instead of to a second compartment.
const Exterior = -1

// Compartment is a disjoint tetrahedral mesh region.
type Compartment struct {
	Points   [][3]float64
	Elements [][4]int
	Volumes  []float64 // per element, filled by NewCompartment
}

func NewCompartment(points [][3]float64, elements [][4]int) (c *Compartment, err error) {
	if len(points) == 0 || len(elements) == 0 {
		err = fmt.Errorf("compartment requires points and elements, have %d points, %d elements",
			len(points), len(elements))
		return
	}
	c = &Compartment{
		Points:   points,
		Elements: elements,
		Volumes:  make([]float64, len(elements)),
	}
	for k, el := range elements {
		for _, v := range el {
			if v < 0 || v >= len(points) {
				c = nil
				err = fmt.Errorf("element %d references point %d, outside [0,%d)", k, v, len(points))
				return
			}
		}
		vol := TetVolume(points[el[0]], points[el[1]], points[el[2]], points[el[3]])
		if vol <= 0 {
			c = nil
			err = fmt.Errorf("element %d has nonpositive volume %g", k, vol)
			return
		}
		c.Volumes[k] = vol
	}
	return
}

func (c *Compartment) Npoints() int { return len(c.Points) }

func (c *Compartment) TotalVolume() float64 {
	return utils.NewVector(len(c.Volumes), c.Volumes).Sum()
}

// VolumeRange reports the smallest and largest element volume, a cheap
// mesh quality indicator.
func (c *Compartment) VolumeRange() (min, max float64) {
	v := utils.NewVector(len(c.Volumes), c.Volumes)
	return v.Min(), v.Max()
}

// Interface couples two compartments (or one compartment and the
// exterior) across matched facet lists with a shared permeability.
type Interface struct {
	A, B         int // compartment indices; B may be Exterior
	Permeability float64
	// FacetsA and FacetsB list the facet vertex triples on each side in
	// matching order, using compartment local point indices. For an
	// exterior interface FacetsB is empty.
	FacetsA [][3]int
	FacetsB [][3]int
}

// Mesh bundles the compartments and their couplings.
type Mesh struct {
	Compartments []*Compartment
	Interfaces   []Interface
}

func (m *Mesh) Npoints() (n int) {
	for _, c := range m.Compartments {
		n += c.Npoints()
	}
	return
}

// Offsets returns the starting global index of each compartment in the
// block concatenated ordering, plus the total size as a final entry.
func (m *Mesh) Offsets() (offs []int) {
	offs = make([]int, len(m.Compartments)+1)
	for i, c := range m.Compartments {
		offs[i+1] = offs[i] + c.Npoints()
	}
	return
}

func (m *Mesh) validateInterfaces() error {
	for i, itf := range m.Interfaces {
		if itf.A < 0 || itf.A >= len(m.Compartments) {
			return fmt.Errorf("interface %d references compartment %d", i, itf.A)
		}
		if itf.B != Exterior && (itf.B < 0 || itf.B >= len(m.Compartments)) {
			return fmt.Errorf("interface %d references compartment %d", i, itf.B)
		}
		if itf.Permeability < 0 {
			return fmt.Errorf("interface %d has negative permeability %g", i, itf.Permeability)
		}
		if itf.B != Exterior && len(itf.FacetsA) != len(itf.FacetsB) {
			return fmt.Errorf("interface %d facet lists differ in length: %d vs %d",
				i, len(itf.FacetsA), len(itf.FacetsB))
		}
	}
	return nil
}

// BoundaryFacets returns the facets of c that belong to exactly one
// tetrahedron, i.e. the surface of the compartment. Facet vertex order
// follows the owning element's local face ordering.
func BoundaryFacets(c *Compartment) (facets [][3]int) {
	type key [3]int
	// Local faces of a tetrahedron (v0,v1,v2,v3).
	faces := [4][3]int{{1, 2, 3}, {0, 3, 2}, {0, 1, 3}, {0, 2, 1}}
	count := make(map[key]int)
	first := make(map[key][3]int)
	for _, el := range c.Elements {
		for _, f := range faces {
			tri := [3]int{el[f[0]], el[f[1]], el[f[2]]}
			k := sortedTriple(tri)
			count[k]++
			if count[k] == 1 {
				first[k] = tri
			}
		}
	}
	for k, n := range count {
		if n == 1 {
			facets = append(facets, first[k])
		}
	}
	return
}

func sortedTriple(t [3]int) [3]int {
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	if t[1] > t[2] {
		t[1], t[2] = t[2], t[1]
	}
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	return t
}

// TetVolume is the signed volume of the tetrahedron (p0,p1,p2,p3),
// positive for right handed vertex ordering.
func TetVolume(p0, p1, p2, p3 [3]float64) float64 {
	var a, b, c [3]float64
	for i := 0; i < 3; i++ {
		a[i] = p1[i] - p0[i]
		b[i] = p2[i] - p0[i]
		c[i] = p3[i] - p0[i]
	}
	det := a[0]*(b[1]*c[2]-b[2]*c[1]) - a[1]*(b[0]*c[2]-b[2]*c[0]) + a[2]*(b[0]*c[1]-b[1]*c[0])
	return det / 6
}

// TriArea is the area of the triangle (p0,p1,p2) in 3-space.
func TriArea(p0, p1, p2 [3]float64) float64 {
	var a, b [3]float64
	for i := 0; i < 3; i++ {
		a[i] = p1[i] - p0[i]
		b[i] = p2[i] - p0[i]
	}
	cx := a[1]*b[2] - a[2]*b[1]
	cy := a[2]*b[0] - a[0]*b[2]
	cz := a[0]*b[1] - a[1]*b[0]
	return 0.5 * math.Sqrt(cx*cx+cy*cy+cz*cz)
}

// UnitCubeMesh builds a structured tetrahedral mesh of the cube
// [0,L]^3 with n cells per side, six tetrahedra per cell (Kuhn
// subdivision). Useful for tests and demos.
func UnitCubeMesh(n int, L float64) (c *Compartment) {
	var (
		np     = n + 1
		points = make([][3]float64, np*np*np)
		h      = L / float64(n)
	)
	id := func(i, j, k int) int { return i + np*(j+np*k) }
	for k := 0; k < np; k++ {
		for j := 0; j < np; j++ {
			for i := 0; i < np; i++ {
				points[id(i, j, k)] = [3]float64{float64(i) * h, float64(j) * h, float64(k) * h}
			}
		}
	}
	// Kuhn subdivision of each cell along the main diagonal v0-v7.
	var elements [][4]int
	paths := [6][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				for _, p := range paths {
					var tet [4]int
					pos := [3]int{i, j, k}
					tet[0] = id(pos[0], pos[1], pos[2])
					for step := 0; step < 3; step++ {
						pos[p[step]]++
						tet[step+1] = id(pos[0], pos[1], pos[2])
					}
					// Orient positively.
					if TetVolume(points[tet[0]], points[tet[1]], points[tet[2]], points[tet[3]]) < 0 {
						tet[2], tet[3] = tet[3], tet[2]
					}
					elements = append(elements, tet)
				}
			}
		}
	}
	c, err := NewCompartment(points, elements)
	if err != nil {
		panic(err)
	}
	return
}
