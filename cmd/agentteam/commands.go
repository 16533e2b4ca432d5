package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/hupe1980/agentteam"
	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/config"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/metrics"
	"github.com/hupe1980/agentteam/store"
	"github.com/hupe1980/agentteam/tool/builtin"
)

const summaryLimit = 200

// ListCmd lists the team definitions in the teams directory.
type ListCmd struct{}

func (c *ListCmd) Run(cli *CLI, e *env) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	teams, err := config.LoadTeams(cfg.TeamsDir)
	if err != nil {
		return err
	}

	if len(teams) == 0 {
		fmt.Fprintf(e.stdout, "No teams found in %s\n", cfg.TeamsDir)
		return nil
	}

	w := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEAM\tAGENTS\tMODEL\tDESCRIPTION")

	for _, tc := range teams {
		name := strings.TrimSuffix(filepath.Base(tc.Path), filepath.Ext(tc.Path))
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, len(tc.Agents), tc.Model, tc.Description)
	}

	return w.Flush()
}

// RunCmd runs a team on a task.
type RunCmd struct {
	Team   string `arg:"" help:"Team name or path to a team YAML file."`
	Task   string `short:"t" help:"Task description (prompted when omitted)."`
	Output string `short:"o" help:"Output mode (print or logger); defaults to print on a terminal."`
}

func (c *RunCmd) Run(cli *CLI, e *env) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	switch c.Output {
	case "", string(agent.OutputPrint), string(agent.OutputLogger):
	default:
		return fmt.Errorf("unknown output mode %q (want print or logger)", c.Output)
	}

	def, err := config.FindTeam(cfg.TeamsDir, c.Team)
	if err != nil {
		return err
	}

	task := strings.TrimSpace(c.Task)
	if task == "" {
		if task, err = promptTask(e); err != nil {
			return err
		}
	}

	logger := cli.newLogger(cfg, e.stderr)

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New(true)
	}

	backend, err := store.Open(cfg.Store, cfg.ResultsDir)
	if err != nil {
		return err
	}

	saved := &recordingStore{Store: backend}

	opts := append([]func(o *agentteam.Options){func(o *agentteam.Options) {
		o.Config = cfg
		o.Store = saved
		o.Output = e.stdout
		o.Logger = logger
		o.Metrics = m
		o.OutputMode = outputMode(c.Output, cfg.OutputMode, def.OutputMode, e.stdout)
	}}, e.runtimeOptions...)

	rt, err := agentteam.New(opts...)
	if err != nil {
		_ = backend.Close()
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := rt.Run(ctx, def, task)
	if err != nil {
		return err
	}

	printSummary(e.stdout, result, saved.Last())

	if result.Status != core.TeamStatusCompleted {
		return errRunFailed
	}

	return nil
}

// InitCmd scaffolds a project directory.
type InitCmd struct {
	Name string `arg:"" help:"Project name."`
	Path string `short:"p" help:"Parent directory." default:"." type:"path"`
}

func (c *InitCmd) Run(e *env) error {
	dir := filepath.Join(c.Path, c.Name)

	created, err := config.Init(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "Project %q initialized at %s\n", c.Name, dir)

	for _, f := range created {
		fmt.Fprintf(e.stdout, "  created %s\n", f)
	}

	fmt.Fprintf(e.stdout, "\nNext steps:\n  1. Set API keys in %s/.env or config.yaml\n  2. Edit teams/example_team.yaml\n  3. agentteam run example_team -t \"Your task\"\n", dir)

	return nil
}

// ResultsCmd lists stored runs.
type ResultsCmd struct {
	Team  string `arg:"" optional:"" help:"Only show results of this team."`
	Limit int    `short:"n" help:"Maximum number of results." default:"20"`
}

func (c *ResultsCmd) Run(cli *CLI, e *env) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.Store, cfg.ResultsDir)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.List(context.Background(), c.Team)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(e.stdout, "No results found")
		return nil
	}

	if c.Limit > 0 && len(list) > c.Limit {
		list = list[:c.Limit]
	}

	w := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tTEAM\tSTATUS\tTASK\tREF")

	for _, sum := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", sum.Timestamp, sum.Team, sum.Status, truncate(oneLine(sum.Task), 60), sum.Ref)
	}

	return w.Flush()
}

// ShowCmd prints one stored run as JSON.
type ShowCmd struct {
	Ref string `arg:"" help:"Result reference from the results command."`
}

func (c *ShowCmd) Run(cli *CLI, e *env) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.Store, cfg.ResultsDir)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Get(context.Background(), c.Ref)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(rec)
}

// ToolsCmd lists the built-in tools.
type ToolsCmd struct{}

func (c *ToolsCmd) Run(e *env) error {
	w := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tSTAGE\tDESCRIPTION")

	for _, d := range builtin.NewRegistry().Descriptors() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Stage, truncate(oneLine(d.Description), 80))
	}

	return w.Flush()
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}

	fmt.Fprintf(e.stdout, "agentteam version %s\n", version)

	return nil
}

// loadConfig loads .env files and the config file. Relative directories are
// resolved against the config file's directory.
func (cli *CLI) loadConfig() (*config.Config, error) {
	base := filepath.Dir(cli.Config)

	if err := config.LoadDotEnv(cli.EnvFile, filepath.Join(base, ".env")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}

	cfg.ResolvePaths(base)

	return cfg, nil
}

func (cli *CLI) newLogger(cfg *config.Config, w io.Writer) logging.Logger {
	lc := cfg.LoggerConfig()
	lc.Output = w
	lc.Component = "cli"

	if cli.Verbose {
		lc.Level = logging.LogLevelDebug
		lc.Format = "text"
	}

	return logging.NewLogger(lc)
}

// outputMode picks the flag, then the team, then the config; with none set
// it prints on a terminal and logs otherwise.
func outputMode(flag, configured, teamMode string, stdout io.Writer) agent.OutputMode {
	for _, m := range []string{flag, teamMode, configured} {
		if m != "" {
			return agent.ParseOutputMode(m)
		}
	}

	if isTerminal(stdout) {
		return agent.OutputPrint
	}

	return agent.OutputLogger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func promptTask(e *env) (string, error) {
	fmt.Fprint(e.stdout, "Enter task description: ")

	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read task: %w", err)
	}

	task := strings.TrimSpace(line)
	if task == "" {
		return "", errors.New("task description is required")
	}

	return task, nil
}

func printSummary(w io.Writer, result *core.TeamResult, location string) {
	if location == "" {
		location = "(not saved)"
	}

	if result.Status == core.TeamStatusCompleted {
		fmt.Fprintf(w, "\n✓ Team %s completed the task\n", result.TeamName)
		fmt.Fprintf(w, "Full results saved to: %s\n", location)
		fmt.Fprintf(w, "Summary: %s\n", truncate(result.FinalOutput, summaryLimit))

		return
	}

	output := result.FinalOutput
	if output == "" {
		output = "No output available"
	}

	fmt.Fprintf(w, "\n✗ Team %s failed\n", result.TeamName)
	fmt.Fprintf(w, "Full details saved to: %s\n", location)
	fmt.Fprintf(w, "Error: %s\n", output)
}

// truncate shortens s to limit runes, appending "..." when cut.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}

	return string(r[:limit]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// recordingStore remembers where the last result was saved.
type recordingStore struct {
	store.Store

	mu   sync.Mutex
	last string
}

func (s *recordingStore) Save(ctx context.Context, r *core.TeamResult) (string, error) {
	ref, err := s.Store.Save(ctx, r)
	if err == nil {
		s.mu.Lock()
		s.last = ref
		s.mu.Unlock()
	}

	return ref, err
}

// Last returns the reference of the last successful save.
func (s *recordingStore) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}
