/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math/cmplx"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/spinsim/btpde/SimParameters"
	"github.com/spinsim/btpde/btpde"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve the Bloch-Torrey PDE for every amplitude, sequence and direction in the input file",
	Long: `
Reads a YAML simulation file, assembles the finite element operators for
the geometry it describes and sweeps the diffusion encoding it lists,

btpde run -I simulation.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			m   = &ModelSim{}
		)
		fmt.Println("run called")
		if m.InputFile, err = cmd.Flags().GetString("inputFile"); err != nil {
			panic(err)
		}
		m.Parallel, _ = cmd.Flags().GetInt("parallel")
		m.Verbose, _ = cmd.Flags().GetBool("verbose")
		m.Profile, _ = cmd.Flags().GetBool("profile")
		sp := processInput(m)
		RunSim(m, sp)
	},
}

type ModelSim struct {
	InputFile string
	Parallel  int
	Verbose   bool
	Profile   bool
}

func processInput(m *ModelSim) (sp *SimParameters.SimParameters) {
	var (
		err error
	)
	if len(m.InputFile) == 0 {
		err = fmt.Errorf("must supply a simulation file (-I, --inputFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Free diffusion"
Compartments:
  - UnitCube: {N: 4, L: 10.}
    Diffusivity: 0.002
Sequences:
  - Type: pgse
    SmallDelta: 2500.
    BigDelta: 10000.
Directions:
  - [1., 0., 0.]
Bvalues: [0., 1000., 4000.]
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(m.InputFile); err != nil {
		panic(err)
	}
	sp = &SimParameters.SimParameters{}
	if err = sp.Parse(data); err != nil {
		panic(err)
	}
	return
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputFile", "I", "", "YAML file describing the geometry, sequences and sweep")
	RunCmd.Flags().IntP("parallel", "p", 0, "number of concurrent solves, 0 uses all CPUs")
	RunCmd.Flags().BoolP("verbose", "v", false, "print one progress line per finished solve")
	RunCmd.Flags().Bool("profile", false, "write a CPU profile to the working directory")
}

func RunSim(m *ModelSim, sp *SimParameters.SimParameters) {
	if m.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	sp.Print()

	mesh, params, err := sp.BuildMesh()
	if err != nil {
		panic(err)
	}
	seqs, err := sp.BuildSequences()
	if err != nil {
		panic(err)
	}
	e, err := sp.BuildExperiment(seqs)
	if err != nil {
		panic(err)
	}
	e.ParallelDegree = m.Parallel
	e.Verbose = m.Verbose

	fmt.Printf("Assembling operators for %d dof in %d compartments...\n",
		mesh.Npoints(), len(mesh.Compartments))
	for i, c := range mesh.Compartments {
		vmin, vmax := c.VolumeRange()
		fmt.Printf("compartment %d: %d points, %d elements, element volumes [%8.3g, %8.3g]\n",
			i, c.Npoints(), len(c.Elements), vmin, vmax)
	}
	ops, err := btpde.Assemble(mesh, params)
	if err != nil {
		panic(err)
	}
	ref := ops.InitialSignal()

	rb, err := btpde.Run(ops, e)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Solved %d cases in %v\n",
		rb.Namplitude*rb.Nsequence*rb.Ndirection, rb.Elapsed)

	fmt.Printf("%12s %24s %24s %12s %12s\n",
		"q", "sequence", "direction", "S/S0", "time")
	for ia := 0; ia < rb.Namplitude; ia++ {
		for is := 0; is < rb.Nsequence; is++ {
			for id := 0; id < rb.Ndirection; id++ {
				var (
					r = rb.At(ia, is, id)
					q = e.Amplitudes[ia][is]
					s = e.Sequences[is]
					g = e.Directions[id]
				)
				if r.Err != nil {
					fmt.Printf("%12.5g %24s %24v failed: %s\n", q, s, g, r.Err.Error())
					continue
				}
				fmt.Printf("%12.5g %24s %24v %12.6f %12v\n",
					q, s, g, cmplx.Abs(r.Signal)/cmplx.Abs(ref), r.Elapsed)
			}
		}
	}
}
