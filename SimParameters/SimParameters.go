package SimParameters

import (
	"fmt"
	"math"

	"github.com/ghodss/yaml"

	"github.com/spinsim/btpde/btpde"
	"github.com/spinsim/btpde/femesh"
	"github.com/spinsim/btpde/sequence"
)

// Parameters obtained from the YAML input file
type SimParameters struct {
	Title          string            `yaml:"Title"`
	Compartments   []CompartmentSpec `yaml:"Compartments"`
	Interfaces     []InterfaceSpec   `yaml:"Interfaces"`
	Sequences      []SequenceSpec    `yaml:"Sequences"`
	Directions     [][]float64       `yaml:"Directions"`
	Bvalues        []float64         `yaml:"Bvalues"`
	Qvalues        []float64         `yaml:"Qvalues"`
	AbsTol         float64           `yaml:"AbsTol"`
	RelTol         float64           `yaml:"RelTol"`
	ParallelDegree int               `yaml:"ParallelDegree"`
}

// CompartmentSpec names a mesh source and the physics on it. Either
// MeshFile or UnitCube must be set. T2 omitted means no relaxation.
type CompartmentSpec struct {
	MeshFile        string        `yaml:"MeshFile"`
	UnitCube        *UnitCubeSpec `yaml:"UnitCube"`
	Diffusivity     float64       `yaml:"Diffusivity"`
	DiffusionTensor [][]float64   `yaml:"DiffusionTensor"`
	T2              *float64      `yaml:"T2"`
	InitialDensity  float64       `yaml:"InitialDensity"`
}

type UnitCubeSpec struct {
	N int     `yaml:"N"`
	L float64 `yaml:"L"`
}

// InterfaceSpec attaches a permeable exterior boundary to one
// compartment. Compartment to compartment coupling is set up through
// the femesh API, not the input file.
type InterfaceSpec struct {
	Compartment  int     `yaml:"Compartment"`
	Permeability float64 `yaml:"Permeability"`
}

type SequenceSpec struct {
	Type       string  `yaml:"Type"` // pgse, double-pgse, cos-ogse, sin-ogse
	SmallDelta float64 `yaml:"SmallDelta"`
	BigDelta   float64 `yaml:"BigDelta"`
	Pause      float64 `yaml:"Pause"`
	Nperiod    int     `yaml:"Nperiod"`
	EchoTime   float64 `yaml:"EchoTime"` // zero means the natural duration
	Symmetric  bool    `yaml:"Symmetric"`
}

func (sp *SimParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, sp)
}

func (sp *SimParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%d]\t\t\t= Compartments\n", len(sp.Compartments))
	fmt.Printf("[%d]\t\t\t= Sequences\n", len(sp.Sequences))
	fmt.Printf("[%d]\t\t\t= Directions\n", len(sp.Directions))
	if len(sp.Bvalues) != 0 {
		fmt.Printf("%v\t= Bvalues\n", sp.Bvalues)
	}
	if len(sp.Qvalues) != 0 {
		fmt.Printf("%v\t= Qvalues\n", sp.Qvalues)
	}
	fmt.Printf("%8.2e\t\t= AbsTol\n", sp.AbsTol)
	fmt.Printf("%8.2e\t\t= RelTol\n", sp.RelTol)
	fmt.Printf("[%d]\t\t\t= ParallelDegree\n", sp.ParallelDegree)
}

// BuildMesh loads or generates every compartment, attaches the exterior
// interfaces, and returns the physics parameters alongside.
func (sp *SimParameters) BuildMesh() (mesh *femesh.Mesh, params []btpde.CompartmentParams, err error) {
	if len(sp.Compartments) == 0 {
		err = fmt.Errorf("input file lists no compartments")
		return
	}
	mesh = &femesh.Mesh{}
	for i, cs := range sp.Compartments {
		var c *femesh.Compartment
		switch {
		case cs.MeshFile != "" && cs.UnitCube != nil:
			err = fmt.Errorf("compartment %d sets both MeshFile and UnitCube", i)
		case cs.MeshFile != "":
			c, err = femesh.ReadCompartment(cs.MeshFile)
		case cs.UnitCube != nil:
			c = femesh.UnitCubeMesh(cs.UnitCube.N, cs.UnitCube.L)
		default:
			err = fmt.Errorf("compartment %d sets neither MeshFile nor UnitCube", i)
		}
		if err != nil {
			mesh, params = nil, nil
			return
		}
		mesh.Compartments = append(mesh.Compartments, c)

		var p btpde.CompartmentParams
		p.Diffusivity, err = diffusionTensor(cs, i)
		if err != nil {
			mesh, params = nil, nil
			return
		}
		p.T2 = btpde.NoRelaxation
		if cs.T2 != nil {
			p.T2 = *cs.T2
		}
		p.InitialDensity = cs.InitialDensity
		if p.InitialDensity == 0 {
			p.InitialDensity = 1
		}
		params = append(params, p)
	}
	for i, is := range sp.Interfaces {
		if is.Compartment < 0 || is.Compartment >= len(mesh.Compartments) {
			err = fmt.Errorf("interface %d references compartment %d", i, is.Compartment)
			mesh, params = nil, nil
			return
		}
		mesh.Interfaces = append(mesh.Interfaces, femesh.Interface{
			A:            is.Compartment,
			B:            femesh.Exterior,
			Permeability: is.Permeability,
			FacetsA:      femesh.BoundaryFacets(mesh.Compartments[is.Compartment]),
		})
	}
	return
}

func diffusionTensor(cs CompartmentSpec, i int) (d femesh.DiffusionTensor, err error) {
	switch {
	case cs.DiffusionTensor != nil && cs.Diffusivity != 0:
		err = fmt.Errorf("compartment %d sets both Diffusivity and DiffusionTensor", i)
	case cs.DiffusionTensor != nil:
		if len(cs.DiffusionTensor) != 3 {
			err = fmt.Errorf("compartment %d DiffusionTensor needs 3 rows, has %d", i, len(cs.DiffusionTensor))
			return
		}
		for r, row := range cs.DiffusionTensor {
			if len(row) != 3 {
				err = fmt.Errorf("compartment %d DiffusionTensor row %d needs 3 entries, has %d", i, r, len(row))
				return
			}
			copy(d[r][:], row)
		}
	case cs.Diffusivity > 0:
		d = femesh.IsotropicTensor(cs.Diffusivity)
	default:
		err = fmt.Errorf("compartment %d has no positive Diffusivity", i)
	}
	return
}

// BuildSequences instantiates the gradient sequences named in the file.
func (sp *SimParameters) BuildSequences() (seqs []sequence.Sequence, err error) {
	if len(sp.Sequences) == 0 {
		err = fmt.Errorf("input file lists no sequences")
		return
	}
	for i, ss := range sp.Sequences {
		var (
			s    sequence.Sequence
			opts []sequence.EchoTimeOption
		)
		if ss.EchoTime > 0 {
			if ss.Symmetric {
				opts = append(opts, sequence.WithSymmetricEchoTime(ss.EchoTime))
			} else {
				opts = append(opts, sequence.WithEchoTime(ss.EchoTime))
			}
		}
		switch ss.Type {
		case "pgse":
			s, err = sequence.NewPGSE(ss.SmallDelta, ss.BigDelta, opts...)
		case "double-pgse":
			s, err = sequence.NewDoublePGSE(ss.SmallDelta, ss.BigDelta, ss.Pause, opts...)
		case "cos-ogse":
			s, err = sequence.NewCosOGSE(ss.SmallDelta, ss.BigDelta, ss.Nperiod, opts...)
		case "sin-ogse":
			s, err = sequence.NewSinOGSE(ss.SmallDelta, ss.BigDelta, ss.Nperiod, opts...)
		default:
			err = fmt.Errorf("unknown sequence type %q", ss.Type)
		}
		if err != nil {
			err = fmt.Errorf("sequence %d: %w", i, err)
			seqs = nil
			return
		}
		seqs = append(seqs, s)
	}
	return
}

// BuildExperiment assembles the sweep: amplitudes from Bvalues or
// Qvalues, unit normalized directions, and solver tolerances.
func (sp *SimParameters) BuildExperiment(seqs []sequence.Sequence) (e *btpde.Experiment, err error) {
	var amps [][]float64
	switch {
	case len(sp.Bvalues) != 0 && len(sp.Qvalues) != 0:
		err = fmt.Errorf("input file sets both Bvalues and Qvalues")
		return
	case len(sp.Bvalues) != 0:
		amps = btpde.AmplitudesFromBvalues(sp.Bvalues, seqs)
	case len(sp.Qvalues) != 0:
		amps = btpde.UniformAmplitudes(sp.Qvalues, len(seqs))
	default:
		err = fmt.Errorf("input file sets neither Bvalues nor Qvalues")
		return
	}
	var dirs [][3]float64
	for i, d := range sp.Directions {
		if len(d) != 3 {
			err = fmt.Errorf("direction %d needs 3 components, has %d", i, len(d))
			return
		}
		norm := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
		if norm == 0 {
			err = fmt.Errorf("direction %d is the zero vector", i)
			return
		}
		dirs = append(dirs, [3]float64{d[0] / norm, d[1] / norm, d[2] / norm})
	}
	e = &btpde.Experiment{
		Amplitudes:     amps,
		Sequences:      seqs,
		Directions:     dirs,
		AbsTol:         sp.AbsTol,
		RelTol:         sp.RelTol,
		ParallelDegree: sp.ParallelDegree,
	}
	if e.AbsTol == 0 {
		e.AbsTol = 1e-6
	}
	if e.RelTol == 0 {
		e.RelTol = 1e-4
	}
	return
}
