package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
)

const (
	DefaultForkPort = 8545

	forkReadyTimeout    = 60 * time.Second
	forkShutdownTimeout = 5 * time.Second
	httpClientTimeout   = 2 * time.Second
	httpPollInterval    = 500 * time.Millisecond
)

// Fork is a local anvil node standing in for a network without an endpoint, optionally forking a live one.
type Fork struct {
	Network *conf.Network
	Binary  string
	Port    int
	ForkUrl string

	cmd *exec.Cmd
	out *zapio.Writer
}

func NewFork(n *conf.Network, forkUrl string, port int) *Fork {
	if port == 0 {
		port = DefaultForkPort
	}
	return &Fork{
		Network: n,
		Binary:  "anvil",
		Port:    port,
		ForkUrl: forkUrl,
	}
}

func (f *Fork) Url() string {
	return fmt.Sprintf("http://127.0.0.1:%d", f.Port)
}

func (f *Fork) Args() []string {
	args := []string{
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(f.Port),
	}
	if f.ForkUrl != "" {
		args = append(args, "--fork-url", f.ForkUrl)
		if f.Network.Forking.BlockNumber != 0 {
			args = append(args, "--fork-block-number", strconv.FormatUint(f.Network.Forking.BlockNumber, 10))
		}
	}
	if f.Network.ChainId != 0 {
		args = append(args, "--chain-id", strconv.FormatUint(f.Network.ChainId, 10))
	}
	if f.Network.BlockGasLimit != 0 {
		args = append(args, "--gas-limit", strconv.FormatUint(f.Network.BlockGasLimit, 10))
	}
	if f.Network.AllowUnlimitedContractSize {
		args = append(args, "--disable-code-size-limit")
	}
	return args
}

// Start launches the node and blocks until it answers HTTP requests.
func (f *Fork) Start(ctx context.Context) error {
	path, err := exec.LookPath(f.Binary)
	if err != nil {
		return fmt.Errorf("%s not found: %w", f.Binary, err)
	}

	f.out = &zapio.Writer{Log: logger.Logger.With(zap.String("process", f.Binary)), Level: zap.DebugLevel}
	f.cmd = exec.Command(path, f.Args()...)
	f.cmd.Stdout = f.out
	f.cmd.Stderr = f.out

	if err := f.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", f.Binary, err)
	}

	logger.Logger.Info("starting local network",
		zap.String("network", f.Network.Name),
		zap.Bool("fork", f.ForkUrl != ""),
		zap.String("rpc", f.Url()),
	)

	if !waitForHTTP(ctx, f.Url(), forkReadyTimeout) {
		_ = f.Stop()
		return fmt.Errorf("%s failed to become ready", f.Binary)
	}
	return nil
}

// Stop terminates the node, killing it if it does not exit in time.
func (f *Fork) Stop() error {
	if f.cmd == nil || f.cmd.Process == nil {
		return nil
	}
	defer func() {
		if f.out != nil {
			_ = f.out.Close()
		}
	}()

	if err := f.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("send SIGTERM: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- f.cmd.Wait()
	}()

	select {
	case err := <-done:
		var exit *exec.ExitError
		if err != nil && !errors.As(err, &exit) {
			return err
		}
	case <-time.After(forkShutdownTimeout):
		logger.Logger.Warn("local network shutdown timeout, forcing kill", zap.String("network", f.Network.Name))
		_ = f.cmd.Process.Kill()
	}
	return nil
}

// waitForHTTP polls an HTTP endpoint until it responds, timeout expires, or context is cancelled.
func waitForHTTP(ctx context.Context, url string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Timeout: httpClientTimeout,
	}

	ticker := time.NewTicker(httpPollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 500 {
				return true
			}
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
