package waitfor

import (
	"context"
	"errors"
	"os"
	"syscall"
)

// ErrNoTarget is returned when a Handoff has no target binary path.
var ErrNoTarget = errors.New("no handoff target configured")

// Execer replaces the current process image. The real implementation never
// returns on success.
type Execer interface {
	Exec(argv0 string, argv []string, envv []string) error
}

type sysExecer struct{}

func (sysExecer) Exec(argv0 string, argv []string, envv []string) error {
	return syscall.Exec(argv0, argv, envv)
}

// Handoff describes the target process that receives control once the gate
// opens. Env entries are applied to the process environment before exec,
// unconditionally; they are a best-effort override signal whose ultimate
// effect depends on the target binary's own precedence between environment
// and its configuration file.
type Handoff struct {
	// Path is the target binary.
	Path string
	// Args are passed after argv[0]; conventionally the static configuration
	// file path is the sole argument.
	Args []string
	// Env entries are set in the process environment before exec.
	Env map[string]string

	execer Execer
}

// NewHandoff takes a target path, its arguments, and environment overrides.
func NewHandoff(path string, args []string, env map[string]string) (*Handoff, error) {
	if path == "" {
		return nil, ErrNoTarget
	}

	return &Handoff{Path: path, Args: args, Env: env, execer: sysExecer{}}, nil
}

// Exec applies the environment overrides and replaces the current process
// image with the target. On success it does not return.
func (h *Handoff) Exec() error {
	for k, v := range h.Env {
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}

	argv := append([]string{h.Path}, h.Args...)

	return h.execer.Exec(h.Path, argv, os.Environ())
}

// Run waits on the gate and, once it opens, hands off exactly once. The
// dependency check is never repeated after handoff; with the real Execer
// this call does not return on success.
func Run(ctx context.Context, g *Gate, h *Handoff) error {
	if err := g.Wait(ctx); err != nil {
		return err
	}

	return h.Exec()
}
