// Package process runs allow-listed local commands as async property loaders.
//
// The request is written to the command's stdin as JSON:
//
//	{"node": "chatModel", "method": "listModels", "inputs": {...}}
//
// and the command must print a LoadResult document on stdout:
//
//	{"options": [...], "collection": [...], "credentialName": "..."}
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// ErrNotRegistered is returned for a node/method pair with no allow-listed command.
var ErrNotRegistered = errors.New("load method not registered")

// DefaultTimeout bounds a single command run.
const DefaultTimeout = 10 * time.Second

// Request is the document written to the command's stdin.
type Request struct {
	Node   string         `json:"node"`
	Method string         `json:"method"`
	Inputs map[string]any `json:"inputs"`
}

// Loader implements ports.PropertyLoader on top of local processes.
// It follows a strict registry pattern: only registered commands run.
type Loader struct {
	registry map[string]LoaderConfig
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

var _ ports.PropertyLoader = (*Loader)(nil)

// Option configures the loader.
type Option func(*Loader)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(loaders map[string]LoaderConfig) Option {
	return func(l *Loader) {
		for _, cfg := range loaders {
			l.registry[cfg.Name()] = cfg
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(l *Loader) {
		l.baseDir = dir
	}
}

// WithTimeout bounds each command run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithLogger configures a logger for the Loader.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a new process Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		registry: make(map[string]LoaderConfig),
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register adds a trusted command to the allow-list.
func (l *Loader) Register(node, method, command string, args ...string) {
	l.registry[registryKey(node, method)] = LoaderConfig{
		Node:    node,
		Method:  method,
		Command: command,
		Args:    args,
	}
}

// Methods lists the registered "node.method" keys.
func (l *Loader) Methods() []string {
	out := make([]string, 0, len(l.registry))
	for k := range l.registry {
		out = append(out, k)
	}
	return out
}

// Load runs the command registered for nodeName.methodName.
func (l *Loader) Load(ctx context.Context, nodeName, methodName string, inputs map[string]any) (*domain.LoadResult, error) {
	cfg, ok := l.registry[registryKey(nodeName, methodName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, registryKey(nodeName, methodName))
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(Request{Node: nodeName, Method: methodName, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode load request: %w", err)
	}

	// Inputs travel on stdin only. Nothing user-controlled reaches argv.
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = l.baseDir
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(payload)

	env := []string{
		"WEAVE_NODE=" + nodeName,
		"WEAVE_METHOD=" + methodName,
	}
	for k, v := range cfg.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("load %s aborted: %w", cfg.Name(), ctxErr)
		}
		l.logger.Warn("Load command failed",
			"loader", cfg.Name(),
			"err", err,
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return nil, fmt.Errorf("execution failed: %v. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	l.logger.Debug("Load command finished", "loader", cfg.Name(), "duration", time.Since(start))

	trimmed := bytes.TrimSpace(stdout.Bytes())
	if len(trimmed) == 0 {
		return &domain.LoadResult{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var result domain.LoadResult
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("invalid output from %s: %w", cfg.Name(), err)
	}
	return &result, nil
}

func registryKey(node, method string) string {
	return node + "." + method
}
