package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coinmeca/flashloan-deployer/artifact"
	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/fabelx/go-solc-select/pkg/config"
	"github.com/fabelx/go-solc-select/pkg/installer"
	"github.com/fabelx/go-solc-select/pkg/versions"
	"go.uber.org/zap"
)

const (
	InputFile   = "solc-input.json"
	VersionFile = "solc-version"
)

// FindCompiler returns the path of the requested solc release, installing it through solc-select when absent.
// A solc on PATH reporting the same version is used as a fallback.
func FindCompiler(version string) (string, error) {
	if path, err := findInstalled(version); err == nil {
		return path, nil
	}

	if err := installer.InstallSolc(version); err != nil {
		if path, lerr := lookPath(version); lerr == nil {
			return path, nil
		}
		return "", fmt.Errorf("failed to install compiler %s: %w", version, err)
	}
	return findInstalled(version)
}

func findInstalled(version string) (string, error) {
	solc, ok := versions.GetInstalled()[version]
	if !ok {
		return "", fmt.Errorf("compiler %s is not installed", version)
	}
	solc = "solc-" + solc

	fileName := filepath.Join(config.SolcArtifacts, solc, solc)
	if _, err := os.Stat(fileName); err != nil {
		return "", fmt.Errorf("failed to find compiler %s: %w", version, err)
	}
	return fileName, nil
}

func lookPath(version string) (string, error) {
	solc, err := exec.LookPath("solc")
	if err != nil {
		return "", fmt.Errorf("solc compiler not found: %w", err)
	}
	out, err := exec.Command(solc, "--version").Output()
	if err != nil {
		return "", err
	}
	if !strings.Contains(string(out), "Version: "+version+"+") {
		return "", fmt.Errorf("solc on PATH is not %s", version)
	}
	return solc, nil
}

// CollectSources reads every .sol file under dir, keyed by its slash-separated path relative to root.
func CollectSources(root, dir string) (map[string]string, error) {
	sources := make(map[string]string)
	err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sol" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sources[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no solidity sources in %s", filepath.Join(root, dir))
	}
	return sources, nil
}

func NewInput(sources map[string]string, s conf.Solidity, remappings []string) *Input {
	in := &Input{
		Language: "Solidity",
		Sources:  make(map[string]*Source, len(sources)),
		Settings: Settings{
			Remappings: remappings,
			Optimizer: Optimizer{
				Enabled: s.Optimizer.Enabled,
				Runs:    s.Optimizer.Runs,
			},
			EvmVersion: s.EvmVersion,
			OutputSelection: map[string]map[string][]string{
				"*": {
					"*": {"abi", "evm.bytecode.object", "evm.deployedBytecode.object", "metadata"},
				},
			},
		},
	}
	if !in.Settings.Optimizer.Enabled && in.Settings.Optimizer.Runs == 0 {
		in.Settings.Optimizer.Runs = 200
	}
	for name, content := range sources {
		in.Sources[name] = &Source{Content: content}
	}
	return in
}

// Compile runs solc in standard-json mode. Imports are resolved from root and the include paths that exist.
func Compile(ctx context.Context, solc, root string, includePaths []string, in *Input) (*Output, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compiler input: %w", err)
	}

	cmd := exec.CommandContext(ctx, solc, args(root, includePaths)...)
	cmd.Stdin = bytes.NewReader(data)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute `%s`: %w.\n%s", cmd, err, stderrBuf.String())
	}

	return ParseOutput(output)
}

func args(root string, includePaths []string) []string {
	args := []string{"--standard-json", "--base-path", root}
	for _, p := range includePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			args = append(args, "--include-path", p)
		}
	}
	return args
}

// ParseOutput decodes the compiler output, failing on any error-severity message and logging the rest.
func ParseOutput(data []byte) (*Output, error) {
	out := &Output{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to parse solc output: %w", err)
	}

	var errs []error
	for _, e := range out.Errors {
		if e.Severity == "error" {
			errs = append(errs, errors.New(strings.TrimSpace(e.FormattedMessage)))
			continue
		}
		logger.Logger.Warn("compiler",
			zap.String("type", e.Type),
			zap.String("message", e.Message),
		)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("compilation failed: %w", errors.Join(errs...))
	}
	return out, nil
}

// Artifacts converts the output into artifacts ordered by source then contract name.
func (o *Output) Artifacts() []*artifact.Artifact {
	var res []*artifact.Artifact
	for source, contracts := range o.Contracts {
		for name, c := range contracts {
			res = append(res, &artifact.Artifact{
				Format:           artifact.Format,
				ContractName:     name,
				SourceName:       source,
				ABI:              c.Abi,
				Bytecode:         artifact.Bytecode(prefixed(c.Evm.Bytecode.Object)),
				DeployedBytecode: artifact.Bytecode(prefixed(c.Evm.DeployedBytecode.Object)),
			})
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SourceName != res[j].SourceName {
			return res[i].SourceName < res[j].SourceName
		}
		return res[i].ContractName < res[j].ContractName
	})
	return res
}

// Contract finds a compiled contract by name across all sources.
func (o *Output) Contract(name string) (string, *OutputContract, bool) {
	for source, contracts := range o.Contracts {
		if c, ok := contracts[name]; ok {
			return source, &c, true
		}
	}
	return "", nil, false
}

// WriteArtifacts writes hardhat-layout artifacts and keeps the compiler input for verification.
func WriteArtifacts(o *Output, in *Input, artifactsDir, cacheDir string) error {
	for _, a := range o.Artifacts() {
		path := filepath.Join(artifactsDir, filepath.FromSlash(a.SourceName), a.ContractName+".json")
		if err := a.Write(path); err != nil {
			return fmt.Errorf("write artifact %s: %w", a.ContractName, err)
		}
	}

	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(cacheDir, InputFile), data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cacheDir, VersionFile), []byte(o.CompilerVersion()), 0o644)
}

// CompilerVersion returns the long compiler version found in the first contract carrying metadata.
func (o *Output) CompilerVersion() string {
	for _, a := range o.Artifacts() {
		c := o.Contracts[a.SourceName][a.ContractName]
		if v := c.CompilerVersion(); v != "" {
			return v
		}
	}
	return ""
}

// ReadVersion returns the long compiler version recorded by the last compilation.
func ReadVersion(cacheDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(cacheDir, VersionFile))
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("no compiler version in %s", VersionFile)
	}
	return v, nil
}

func ReadInput(cacheDir string) (*Input, error) {
	data, err := os.ReadFile(filepath.Join(cacheDir, InputFile))
	if err != nil {
		return nil, err
	}
	in := &Input{}
	if err := json.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("decode %s: %w", InputFile, err)
	}
	return in, nil
}

func prefixed(hex string) string {
	if hex == "" || strings.HasPrefix(hex, "0x") {
		return hex
	}
	return "0x" + hex
}
