package main

import (
	"context"
	"fmt"

	"github.com/coinmeca/flashloan-deployer/artifact"
	"github.com/coinmeca/flashloan-deployer/compiler"
	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (rc *RootCommand) compileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile the project sources into artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := rc.compile(cmd.Context())
			if err != nil {
				return err
			}
			if rc.config.ContractSizer.RunOnCompile {
				return rc.renderSizes(out.Artifacts())
			}
			return nil
		},
	}
}

func (rc *RootCommand) sizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Print the code size of every compiled contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			artifacts, err := artifact.All(rc.path(rc.config.Paths.Artifacts))
			if err != nil {
				return err
			}
			return rc.renderSizes(artifacts)
		},
	}
}

func (rc *RootCommand) compile(ctx context.Context) (*compiler.Output, error) {
	paths := rc.config.Paths

	sources, err := compiler.CollectSources(paths.Root, paths.Sources)
	if err != nil {
		return nil, err
	}
	remappings, err := rc.remappings()
	if err != nil {
		return nil, err
	}

	solc, err := compiler.FindCompiler(rc.config.Solidity.Version)
	if err != nil {
		return nil, err
	}
	logger.Logger.Debug("compiler", zap.String("path", solc), zap.String("version", rc.config.Solidity.Version))

	in := compiler.NewInput(sources, rc.config.Solidity, remappings)
	out, err := compiler.Compile(ctx, solc, paths.Root, []string{rc.path(paths.NodeModules)}, in)
	if err != nil {
		return nil, err
	}
	if err := compiler.WriteArtifacts(out, in, rc.path(paths.Artifacts), rc.path(paths.Cache)); err != nil {
		return nil, err
	}

	logger.Logger.Info("compiled",
		zap.Int("sources", len(sources)),
		zap.Int("contracts", len(out.Artifacts())),
		zap.String("version", out.CompilerVersion()),
	)
	return out, nil
}

// compiled fails when the contract to deploy is missing from a fresh compilation, so a stale artifact left
// in the artifacts directory is never deployed.
func compiled(out *compiler.Output, name string) error {
	source, _, ok := out.Contract(name)
	if !ok {
		return fmt.Errorf("%w: contract %s is not in the compiled sources", conf.ErrInvalidConfig, name)
	}
	logger.Logger.Debug("contract to deploy", zap.String("contract", name), zap.String("source", source))
	return nil
}

func (rc *RootCommand) renderSizes(artifacts []*artifact.Artifact) error {
	sizes, err := compiler.Sizes(artifacts, rc.config.ContractSizer.AlphaSort)
	if err != nil {
		return err
	}
	for _, s := range sizes {
		if s.OverLimit() {
			logger.Logger.Warn("contract exceeds size limit", zap.String("contract", s.Name), zap.Int("deployed", s.Deployed))
		}
	}
	return compiler.RenderSizes(rc.stdout, sizes, rc.config.ContractSizer.DisambiguatePaths)
}
