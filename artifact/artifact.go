// Package artifact reads compiled contract artifacts in the hardhat and Foundry layouts.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const Format = "hh-sol-artifact-1"

var ErrNotFound = errors.New("artifact not found")

// Artifact is a compiled contract with its ABI and bytecode.
type Artifact struct {
	Format           string          `json:"_format,omitempty"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         Bytecode        `json:"bytecode"`
	DeployedBytecode Bytecode        `json:"deployedBytecode"`
}

// Bytecode accepts both a bare hex string (hardhat) and an object with an "object" field (Foundry).
type Bytecode string

func (b *Bytecode) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*b = Bytecode(obj.Object)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = Bytecode(s)
	return nil
}

// Bytes decodes the hex bytecode. Unlinked library placeholders are rejected.
func (b Bytecode) Bytes() ([]byte, error) {
	s := string(b)
	if strings.Contains(s, "__") {
		return nil, errors.New("bytecode has unlinked library references")
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	a := &Artifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if a.ContractName == "" {
		a.ContractName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return a, nil
}

// Find looks for <name>.json anywhere under dir, skipping build-info and debug files.
func Find(dir, name string) (*Artifact, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "build-info" {
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == name+".json" {
			found = append(found, path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, dir)
	case 1:
		return Load(found[0])
	default:
		return nil, fmt.Errorf("contract name %s is ambiguous: %s", name, strings.Join(found, ", "))
	}
}

// All loads every artifact under dir. Files that are not contract artifacts are skipped.
func All(dir string) ([]*Artifact, error) {
	var res []*Artifact
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "build-info" {
			return filepath.SkipDir
		}
		if d.IsDir() || filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}
		a, err := Load(path)
		if err != nil || a.Format != Format {
			return nil
		}
		res = append(res, a)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no artifacts in %s, compile first", ErrNotFound, dir)
	}
	return res, err
}

func (a *Artifact) ParsedABI() (abi.ABI, error) {
	return abi.JSON(bytes.NewReader(a.ABI))
}

// Code returns the creation bytecode, which must be non-empty.
func (a *Artifact) Code() ([]byte, error) {
	code, err := a.Bytecode.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.ContractName, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%s: empty bytecode, the contract may be abstract or an interface", a.ContractName)
	}
	return code, nil
}

func (a *Artifact) Write(path string) error {
	if a.Format == "" {
		a.Format = Format
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
