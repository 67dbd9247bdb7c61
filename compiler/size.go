package compiler

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/coinmeca/flashloan-deployer/artifact"
)

const (
	// MaxCodeSize is the EIP-170 runtime code limit.
	MaxCodeSize = 24576
	// MaxInitCodeSize is the EIP-3860 init code limit.
	MaxInitCodeSize = 2 * MaxCodeSize
)

type Size struct {
	Name     string
	Source   string
	Deployed int
	Initcode int
}

func (s Size) OverLimit() bool {
	return s.Deployed > MaxCodeSize || s.Initcode > MaxInitCodeSize
}

// Sizes measures every artifact with bytecode. Interfaces and abstract contracts are skipped.
func Sizes(artifacts []*artifact.Artifact, alphaSort bool) ([]Size, error) {
	var sizes []Size
	for _, a := range artifacts {
		deployed, err := a.DeployedBytecode.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.ContractName, err)
		}
		initcode, err := a.Bytecode.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.ContractName, err)
		}
		if len(deployed) == 0 && len(initcode) == 0 {
			continue
		}
		sizes = append(sizes, Size{
			Name:     a.ContractName,
			Source:   a.SourceName,
			Deployed: len(deployed),
			Initcode: len(initcode),
		})
	}

	if alphaSort {
		sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].Name < sizes[j].Name })
	} else {
		sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].Deployed > sizes[j].Deployed })
	}
	return sizes, nil
}

// RenderSizes prints sizes in KiB, marking contracts over the limits. With disambiguate the source path
// is shown next to the name.
func RenderSizes(w io.Writer, sizes []Size, disambiguate bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Contract\tDeployed (KiB)\tInitcode (KiB)\t")
	for _, s := range sizes {
		name := s.Name
		if disambiguate && s.Source != "" {
			name = s.Source + ":" + s.Name
		}
		mark := ""
		if s.OverLimit() {
			mark = "!"
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%s\n", name, kib(s.Deployed), kib(s.Initcode), mark)
	}
	return tw.Flush()
}

func kib(n int) float64 {
	return float64(n) / 1024
}
