package supervise

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// State tracks a child process through its lifecycle.
type State string

const (
	StateUnknown State = "unknown"
	StatePending State = "pending"
	StateReady   State = "ready"
	StateFailed  State = "failed"
	StateStopped State = "stopped"
)

// Spec describes a child process to launch.
type Spec struct {
	Name    string
	Command []string
	Dir     string
	// Env entries are appended to the parent environment.
	Env []string
}

// Process is a handle to a launched child. Each child owns a process group
// so its descendants are terminated together with it.
type Process struct {
	name   string
	cmd    *exec.Cmd
	done   chan struct{}
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	stopping bool
	waitErr  error
}

// Start launches the child in its own process group with stdout and stderr
// passed through to the parent.
func Start(spec Spec, logger *zap.Logger) (*Process, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	p := &Process{
		name:   spec.Name,
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: logger,
		state:  StatePending,
	}
	go p.reap()

	logger.Info("process started",
		zap.String("name", spec.Name),
		zap.Int("pid", cmd.Process.Pid),
	)
	return p, nil
}

// reap waits for the child and records the outcome. A child brought down by
// Stop lands in Stopped no matter how it exited.
func (p *Process) reap() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.waitErr = err
	switch {
	case p.stopping:
		p.state = StateStopped
	case err != nil:
		p.state = StateFailed
	default:
		p.state = StateStopped
	}
	p.mu.Unlock()

	close(p.done)
}

// Name returns the name the child was launched under.
func (p *Process) Name() string {
	return p.name
}

// PID returns the child's process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// State returns the current lifecycle state. A nil handle reports Unknown.
func (p *Process) State() State {
	if p == nil {
		return StateUnknown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// MarkReady records that the child passed its readiness gate. It has no
// effect once the child has exited.
func (p *Process) MarkReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StatePending {
		p.state = StateReady
	}
}

// Done returns a channel closed once the child has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the child exits and returns the wait error.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// ExitCode returns the child's exit code. It blocks until the child has
// exited; a signal-terminated child reports -1.
func (p *Process) ExitCode() int {
	<-p.done
	return p.cmd.ProcessState.ExitCode()
}

// Stop terminates the child's process group: SIGTERM first, then SIGKILL
// once the grace period elapses. It returns after the child is reaped, so
// no zombies or orphans remain.
func (p *Process) Stop(grace time.Duration) {
	select {
	case <-p.done:
		return
	default:
	}

	p.mu.Lock()
	p.stopping = true
	p.mu.Unlock()

	p.signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(grace):
		p.logger.Warn("process ignored SIGTERM, killing group",
			zap.String("name", p.name),
			zap.Int("pid", p.PID()),
		)
		p.signal(syscall.SIGKILL)
		<-p.done
	}

	p.logger.Info("process stopped", zap.String("name", p.name))
}

// signal delivers sig to the whole process group, falling back to the
// process itself when the group is gone.
func (p *Process) signal(sig syscall.Signal) {
	pid := p.cmd.Process.Pid
	if pgid, err := syscall.Getpgid(pid); err == nil {
		_ = syscall.Kill(-pgid, sig)
		return
	}
	_ = p.cmd.Process.Signal(sig)
}
