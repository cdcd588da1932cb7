package femesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/spinsim/btpde/utils"
)

// DiffusionTensor is a symmetric 3x3 intrinsic diffusivity in um^2/us.
type DiffusionTensor [3][3]float64

// IsotropicTensor is d times the identity.
func IsotropicTensor(d float64) (D DiffusionTensor) {
	D[0][0], D[1][1], D[2][2] = d, d, d
	return
}

// MassMatrix assembles the P1 mass matrix of a compartment. The local
// matrix of a tetrahedron of volume V is V/20 off the diagonal and
// V/10 on it.
func MassMatrix(c *Compartment) utils.CSR {
	var (
		n   = c.Npoints()
		dok = utils.NewDOK(n, n)
	)
	for k, el := range c.Elements {
		V := c.Volumes[k]
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				v := V / 20
				if i == j {
					v = V / 10
				}
				dok.Accumulate(el[i], el[j], v)
			}
		}
	}
	return dok.ToCSR()
}

// WeightedMassMatrix assembles the coordinate moment matrix for one
// axis (0, 1 or 2): the mass matrix weighted by the linear coordinate
// function, using the exact monomial integrals over a tetrahedron.
func WeightedMassMatrix(c *Compartment, axis int) utils.CSR {
	if axis < 0 || axis > 2 {
		panic(fmt.Errorf("axis must be 0, 1 or 2, have %d", axis))
	}
	var (
		n   = c.Npoints()
		dok = utils.NewDOK(n, n)
	)
	for k, el := range c.Elements {
		V := c.Volumes[k]
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				var sum float64
				for l := 0; l < 4; l++ {
					sum += c.Points[el[l]][axis] * barycentricTriple(i, j, l, V)
				}
				dok.Accumulate(el[i], el[j], sum)
			}
		}
	}
	return dok.ToCSR()
}

// barycentricTriple is the integral of lambda_i lambda_j lambda_l over
// a tetrahedron of volume V.
func barycentricTriple(i, j, l int, V float64) float64 {
	switch {
	case i == j && j == l:
		return 3 * V / 10
	case i == j || j == l || i == l:
		return V / 10
	}
	return V / 20
}

// StiffnessMatrix assembles the P1 stiffness matrix against the
// compartment diffusion tensor: entries are V grad(phi_i) . D
// grad(phi_j) per element.
func StiffnessMatrix(c *Compartment, D DiffusionTensor) utils.CSR {
	var (
		n   = c.Npoints()
		dok = utils.NewDOK(n, n)
	)
	for k, el := range c.Elements {
		var (
			V = c.Volumes[k]
			g = elementGradients(c, el)
		)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				var v float64
				for a := 0; a < 3; a++ {
					for b := 0; b < 3; b++ {
						v += g[i][a] * D[a][b] * g[j][b]
					}
				}
				dok.Accumulate(el[i], el[j], V*v)
			}
		}
	}
	return dok.ToCSR()
}

// elementGradients computes the constant barycentric gradients of a
// tetrahedron.
func elementGradients(c *Compartment, el [4]int) (g [4][3]float64) {
	var (
		p0 = c.Points[el[0]]
		E  = mat.NewDense(3, 3, nil)
	)
	for r := 1; r < 4; r++ {
		p := c.Points[el[r]]
		for m := 0; m < 3; m++ {
			E.Set(r-1, m, p[m]-p0[m])
		}
	}
	var Einv mat.Dense
	if err := Einv.Inverse(E); err != nil {
		panic(fmt.Errorf("degenerate tetrahedron in gradient computation: %v", err))
	}
	// grad(lambda_r) is column r-1 of E^{-1}; lambda_0 closes the sum.
	for r := 1; r < 4; r++ {
		for m := 0; m < 3; m++ {
			g[r][m] = Einv.At(m, r-1)
			g[0][m] -= Einv.At(m, r-1)
		}
	}
	return
}

// FluxMatrix assembles the boundary mass matrix over a facet list: the
// local matrix of a triangle of area A is A/12 off the diagonal and
// A/6 on it, sized to the compartment point count.
func FluxMatrix(c *Compartment, facets [][3]int) utils.CSR {
	var (
		n   = c.Npoints()
		dok = utils.NewDOK(n, n)
	)
	for _, f := range facets {
		A := TriArea(c.Points[f[0]], c.Points[f[1]], c.Points[f[2]])
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				v := A / 12
				if i == j {
					v = A / 6
				}
				dok.Accumulate(f[i], f[j], v)
			}
		}
	}
	return dok.ToCSR()
}

// CoupleFlux assembles the global permeability coupling matrix Q over
// all interfaces of the mesh. With symmetric set, magnetization leaving
// one side enters the other through the off diagonal blocks; without
// it the cross terms are dropped and both sides only leak.
func CoupleFlux(m *Mesh, symmetric bool) (Q utils.CSR, err error) {
	if err = m.validateInterfaces(); err != nil {
		return
	}
	var (
		offs = m.Offsets()
		n    = offs[len(offs)-1]
		dok  = utils.NewDOK(n, n)
	)
	for _, itf := range m.Interfaces {
		var (
			kappa = itf.Permeability
			ca    = m.Compartments[itf.A]
			offA  = offs[itf.A]
		)
		if kappa == 0 {
			continue
		}
		for fi, fa := range itf.FacetsA {
			A := TriArea(ca.Points[fa[0]], ca.Points[fa[1]], ca.Points[fa[2]])
			local := func(i, j int) float64 {
				if i == j {
					return kappa * A / 6
				}
				return kappa * A / 12
			}
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					dok.Accumulate(offA+fa[i], offA+fa[j], local(i, j))
				}
			}
			if itf.B == Exterior {
				continue
			}
			var (
				offB = offs[itf.B]
				fb   = itf.FacetsB[fi]
			)
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					dok.Accumulate(offB+fb[i], offB+fb[j], local(i, j))
				}
			}
			if symmetric {
				for i := 0; i < 3; i++ {
					for j := 0; j < 3; j++ {
						dok.Accumulate(offA+fa[i], offB+fb[j], -local(i, j))
						dok.Accumulate(offB+fb[i], offA+fa[j], -local(i, j))
					}
				}
			}
		}
	}
	Q = dok.ToCSR()
	return
}
