// Command agentteam runs teams of reasoning agents defined in YAML.
//
// Usage:
//
//	agentteam init myproject
//	agentteam list
//	agentteam run example_team -t "Summarize the latest Go release"
//	agentteam results example_team
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/hupe1980/agentteam"
)

// errRunFailed marks a team run that finished with a failed status.
var errRunFailed = errors.New("team run failed")

// CLI defines the command-line interface.
type CLI struct {
	List    ListCmd    `cmd:"" help:"List available teams."`
	Run     RunCmd     `cmd:"" help:"Run a team on a task."`
	Init    InitCmd    `cmd:"" help:"Initialize a new project."`
	Results ResultsCmd `cmd:"" help:"List saved results."`
	Show    ShowCmd    `cmd:"" help:"Print a saved result."`
	Tools   ToolsCmd   `cmd:"" help:"List built-in tools."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config  string `short:"c" help:"Path to config file." default:"config.yaml" type:"path"`
	EnvFile string `name:"env-file" help:"Additional .env file to load." type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging in text format."`
}

// env carries the process streams and test hooks into commands.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// runtimeOptions are appended to the runtime construction.
	runtimeOptions []func(o *agentteam.Options)
}

func main() {
	e := &env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}

	if err := run(os.Args[1:], e); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}

		os.Exit(1)
	}
}

// run parses args and executes the selected command.
func run(args []string, e *env) error {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("agentteam"),
		kong.Description("Multi-agent teams for LLM task execution"),
		kong.UsageOnError(),
		kong.Writers(e.stdout, e.stderr),
		kong.Bind(e),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return ctx.Run(&cli)
}
