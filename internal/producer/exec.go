package producer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/metalagman/ainvoke"

	"github.com/praxislabs/vetta/internal/config"
)

// execRunner shells out to an arbitrary agent command via ainvoke, which
// handles writing input.json into the run directory and capturing output.
type execRunner struct {
	cmd    []string
	runner ainvoke.Runner
}

func newExecRunner(cfg config.ProducerConfig) (*execRunner, error) {
	if len(cfg.Cmd) == 0 {
		return nil, fmt.Errorf("exec producer requires cmd")
	}
	ar, err := ainvoke.NewRunner(ainvoke.AgentConfig{
		Cmd: cfg.Cmd,
	})
	if err != nil {
		return nil, err
	}
	return &execRunner{cmd: cfg.Cmd, runner: ar}, nil
}

func (r *execRunner) Produce(ctx context.Context, req Request) ([]byte, error) {
	inv := ainvoke.Invocation{
		RunDir:       req.RunDir,
		SystemPrompt: instructions(req),
		Input:        req,
	}
	out, errOut, exitCode, err := r.runner.Run(ctx, inv,
		ainvoke.WithStdout(io.Discard),
		ainvoke.WithStderr(io.Discard),
	)
	if err != nil {
		return nil, fmt.Errorf("exec producer: %w", err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("exec producer exited %d: %s", exitCode, strings.TrimSpace(string(errOut)))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("exec producer produced no output")
	}
	return out, nil
}

func (r *execRunner) Describe() string {
	return "exec/" + strings.Join(r.cmd, " ")
}
