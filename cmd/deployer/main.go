package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const DefaultConfigFile = "deployer.toml"

type RootCommand struct {
	baseCmd *cobra.Command

	stdout io.Writer
	stderr io.Writer

	cfgFile string
	envFile string
	network string
	root    string
	verbose bool

	config *conf.Config
	cred   *conf.Credentials
}

var noConfigCmd = map[string]struct{}{
	"help":             {},
	"completion":       {},
	"__complete":       {},
	"__completeNoDesc": {},
}

// failures names the failure logged when a command returns an error.
var failures = map[string]string{
	"deploy":  "deployment failed",
	"compile": "compilation failed",
	"size":    "size report failed",
	"verify":  "verification failed",

	"deployments": "listing deployments failed",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	_ = logger.InitTo(conf.Default().Log, stderr)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := newRootCommand(stdout, stderr)
	rc.baseCmd.SetArgs(args)

	cmd, err := rc.baseCmd.ExecuteContextC(ctx)
	if err != nil {
		msg, ok := failures[cmd.Name()]
		if !ok {
			msg = "command failed"
		}
		logger.Logger.Error(msg, zap.Error(err))
		if !logger.Terminal() {
			fmt.Fprintf(stderr, "%s: %v\n", msg, err)
		}
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *RootCommand {
	rc := &RootCommand{stdout: stdout, stderr: stderr}
	rc.baseCmd = &cobra.Command{
		Use:               "deployer",
		Short:             "Compile, deploy and verify the Flashloan contract",
		PersistentPreRunE: rc.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rc.baseCmd.SetOut(stdout)
	rc.baseCmd.SetErr(stderr)

	flags := rc.baseCmd.PersistentFlags()
	flags.StringVarP(&rc.cfgFile, "config", "c", "", "Path to the config file (default <root>/"+DefaultConfigFile+" when present)")
	flags.StringVar(&rc.envFile, "env-file", "", "Path to the dotenv file (default <root>/.env)")
	flags.StringVarP(&rc.network, "network", "n", "", "Network to use (default from config)")
	flags.StringVar(&rc.root, "root", "", "Project root (default from config)")
	flags.BoolVarP(&rc.verbose, "verbose", "v", false, "Verbose mode (debug logs)")

	rc.baseCmd.AddCommand(
		rc.compileCommand(),
		rc.deployCommand(),
		rc.sizeCommand(),
		rc.verifyCommand(),
		rc.networksCommand(),
		rc.deploymentsCommand(),
	)
	return rc
}

// setup reads the environment and the config file once, before any command runs.
func (rc *RootCommand) setup(cmd *cobra.Command, _ []string) error {
	if _, withoutConfig := noConfigCmd[cmd.Name()]; withoutConfig {
		return nil
	}

	root := rc.root
	if root == "" {
		root = "."
	}

	envFile := rc.envFile
	if envFile == "" {
		envFile = filepath.Join(root, ".env")
	}
	cred, err := conf.LoadEnv(envFile)
	if err != nil {
		return err
	}

	cfgFile := rc.cfgFile
	if cfgFile == "" {
		if _, err := os.Stat(filepath.Join(root, DefaultConfigFile)); err == nil {
			cfgFile = filepath.Join(root, DefaultConfigFile)
		}
	}
	config, err := conf.Load(cfgFile)
	if err != nil {
		return err
	}
	if rc.root != "" {
		config.Paths.Root = rc.root
	}
	if rc.verbose {
		config.Log.Terminal.Use = true
		config.Log.Terminal.Verbosity = 3
	}
	if err := logger.InitTo(config.Log, rc.stderr); err != nil {
		return err
	}

	rc.config, rc.cred = config, cred
	logger.Logger.Debug("config loaded",
		zap.String("file", cfgFile),
		zap.String("root", config.Paths.Root),
		zap.String("network", rc.networkName()),
	)
	return nil
}

func (rc *RootCommand) networkName() string {
	if rc.network != "" {
		return rc.network
	}
	return rc.config.DefaultNetwork
}

// path resolves a project path against the configured root.
func (rc *RootCommand) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rc.config.Paths.Root, p)
}

// remappings reads the import remappings of the project, one per line, when a remappings.txt exists.
func (rc *RootCommand) remappings() ([]string, error) {
	f, err := os.Open(rc.path("remappings.txt"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var res []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "=") {
			return nil, fmt.Errorf("invalid remapping %q", line)
		}
		res = append(res, line)
	}
	return res, scanner.Err()
}
