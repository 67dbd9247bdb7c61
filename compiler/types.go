package compiler

import (
	"encoding/json"
)

// Input is the solc standard-json input.
type Input struct {
	Language string             `json:"language"`
	Sources  map[string]*Source `json:"sources"`
	Settings Settings           `json:"settings"`
}

type Source struct {
	Content string `json:"content,omitempty"`
}

type Settings struct {
	Remappings      []string                       `json:"remappings,omitempty"`
	Optimizer       Optimizer                      `json:"optimizer"`
	EvmVersion      string                         `json:"evmVersion,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

type Optimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// Output is the solc standard-json output, restricted to what artifacts need.
type Output struct {
	Errors    []Error                              `json:"errors"`
	Contracts map[string]map[string]OutputContract `json:"contracts"`
}

type Error struct {
	Type             string `json:"type"`
	Component        string `json:"component"`
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

type OutputContract struct {
	Abi      json.RawMessage `json:"abi"`
	Metadata string          `json:"metadata,omitempty"`
	Evm      struct {
		Bytecode         Bytecode `json:"bytecode"`
		DeployedBytecode Bytecode `json:"deployedBytecode"`
	} `json:"evm"`
}

type Bytecode struct {
	Object string `json:"object"`
}

// CompilerVersion returns the full compiler version recorded in the metadata, e.g. 0.8.24+commit.e11b9ed9.
func (c *OutputContract) CompilerVersion() string {
	var meta struct {
		Compiler struct {
			Version string `json:"version"`
		} `json:"compiler"`
	}
	if err := json.Unmarshal([]byte(c.Metadata), &meta); err != nil {
		return ""
	}
	return meta.Compiler.Version
}
