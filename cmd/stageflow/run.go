package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ci-utils/stageflow/pkg/config"
	"github.com/ci-utils/stageflow/pkg/matrix"
	"github.com/ci-utils/stageflow/pkg/retrier"
	"github.com/ci-utils/stageflow/pkg/types"
)

func newRunCmd() *cobra.Command {
	var (
		file    string
		command string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a shell command for every stage combination",
		RunE: func(cmd *cobra.Command, args []string) error {
			if command == "" {
				return types.NewConfigError("--cmd", "a command template is required")
			}

			def, err := config.Load(file)
			if err != nil {
				return err
			}

			extra := types.Bindings{}
			if envFile != "" {
				vars, err := godotenv.Read(envFile)
				if err != nil {
					return fmt.Errorf("read env file: %w", err)
				}
				for k, v := range vars {
					extra[k] = v
				}
			}

			runID := uuid.NewString()
			log := newConsoleLog(cmd.OutOrStdout(), runID)
			fmt.Fprintf(cmd.OutOrStdout(), "run %s starting\n", runID)

			action := shellAction(command, log)
			if def.Retry != nil {
				action, err = retryingAction(def.Retry, action, log)
				if err != nil {
					return err
				}
			}

			groups := make([]matrix.Group, len(def.Groups))
			for i, g := range def.Groups {
				mg := g.MatrixGroup(action)
				mg.Options.ExtraVars = mg.Options.ExtraVars.Merged(extra)
				groups[i] = mg
			}

			_, err = matrix.RunGroups(cmd.Context(), groups)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "stageflow.yaml", "definition file")
	cmd.Flags().StringVar(&command, "cmd", "", "shell command run per combination")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file merged into every stage environment")
	return cmd
}

// shellAction runs the command template through the shell with the
// stage bindings exported, teeing output into the shared log so the
// retry decision can scan it.
func shellAction(command string, log *consoleLog) types.UnitOfWork {
	return func(ctx context.Context, env types.Bindings) error {
		sh := exec.CommandContext(ctx, "sh", "-c", command)
		sh.Env = os.Environ()
		for _, k := range env.Keys() {
			sh.Env = append(sh.Env, k+"="+env[k])
		}
		out, err := sh.CombinedOutput()
		for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
			log.Printf("[%s] %s", env[matrix.StageNameVar], line)
		}
		return err
	}
}

// retryingAction wraps the action in the retry controller configured by
// the file's retry section.
func retryingAction(rc *config.Retry, action types.UnitOfWork, log *consoleLog) (types.UnitOfWork, error) {
	base, err := rc.RetrierConfig()
	if err != nil {
		return nil, err
	}
	if base.Target == "" {
		base.Target = "local"
	}
	ctrl := retrier.New(localAllocator{}, log)

	return func(ctx context.Context, env types.Bindings) error {
		cfg := base
		cfg.Name = env[matrix.StageNameVar]
		cfg.Env = env.Merged(cfg.Env)
		cfg.Task = action
		_, err := ctrl.Run(ctx, cfg)
		return err
	}, nil
}

// localAllocator runs everything in the current process; the target
// label is informational only.
type localAllocator struct{}

func (localAllocator) WithNode(ctx context.Context, label string, body func(ctx context.Context) error) error {
	return body(ctx)
}

// consoleLog writes lines to the console and keeps them for retrieval,
// implementing retrier.LogStream.
type consoleLog struct {
	mu    sync.Mutex
	w     io.Writer
	runID string
	lines []string
}

func newConsoleLog(w io.Writer, runID string) *consoleLog {
	return &consoleLog{w: w, runID: runID}
}

func (l *consoleLog) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf(format, args...)
	l.lines = append(l.lines, line)
	fmt.Fprintln(l.w, line)
}

func (l *consoleLog) Text(ctx context.Context, nameFilters []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// With a stage-name filter only that stage's lines (and the shared
	// retry markers) are returned, mirroring how a homogeneous matrix is
	// disambiguated.
	if len(nameFilters) == 0 {
		return strings.Join(l.lines, "\n"), nil
	}
	var out []string
	for _, line := range l.lines {
		if strings.HasPrefix(line, "[retry]") {
			out = append(out, line)
			continue
		}
		for _, f := range nameFilters {
			if f == "" || strings.Contains(line, "["+f+"]") {
				out = append(out, line)
				break
			}
		}
	}
	return strings.Join(out, "\n"), nil
}
