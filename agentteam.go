// Package agentteam wires configuration, tools, model providers, result
// storage, metrics and logging into ready-to-run teams. Most applications:
//  1. Load a config.Config (config.Load) and team definitions (config.LoadTeams)
//  2. Create a Runtime via New()
//  3. Run a team on a task (Run) or build an Orchestrator for streaming
//
// The Runtime delegates orchestration to team.Orchestrator. Defaults are safe
// for local use: the built-in tool registry, a JSON result store under the
// configured results directory and a no-op logger.
package agentteam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/config"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/metrics"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/model/provider"
	"github.com/hupe1980/agentteam/store"
	"github.com/hupe1980/agentteam/team"
	"github.com/hupe1980/agentteam/tool"
	"github.com/hupe1980/agentteam/tool/builtin"
)

// ModelFactory builds a model client. Provider is empty when the model was
// given by name only.
type ModelFactory func(providerName, name string, settings map[string]provider.Settings) (model.Client, error)

// Options configures the Runtime.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config
	// Registry defaults to the built-in tools.
	Registry *tool.Registry
	// Store defaults to the backend named by Config.Store.
	Store store.Store
	// OutputMode overrides the team and config output mode when set.
	OutputMode agent.OutputMode
	// Output receives console rendering in print mode (defaults to stdout).
	Output io.Writer
	// Metrics is optional; nil disables metrics.
	Metrics *metrics.Metrics
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
	// TeamModel and AgentModel replace provider construction, mainly in tests.
	TeamModel  ModelFactory
	AgentModel ModelFactory
}

// Runtime builds and runs teams from definitions.
type Runtime struct {
	opts     Options
	cfg      *config.Config
	registry *tool.Registry
	store    store.Store
	logger   logging.Logger
}

// New creates a Runtime. Unknown tool sections in the config are logged and
// ignored.
func New(optFns ...func(o *Options)) (*Runtime, error) {
	opts := Options{
		Output: os.Stdout,
		Logger: logging.NoOpLogger{},
		TeamModel: func(p, name string, settings map[string]provider.Settings) (model.Client, error) {
			return provider.ForTeam(name, p, func(o *provider.Options) { o.Settings = settings }), nil
		},
		AgentModel: func(p, name string, settings map[string]provider.Settings) (model.Client, error) {
			return provider.New(name, func(o *provider.Options) {
				o.Provider = p
				o.Settings = settings
			})
		},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config == nil {
		opts.Config = config.Default()
	}

	if opts.Registry == nil {
		opts.Registry = builtin.NewRegistry()
	}

	logger := logging.OrNop(opts.Logger)

	for _, name := range opts.Registry.Configure(opts.Config.Tools) {
		logger.Warn("config.tool.unknown", "tool", name)
	}

	st := opts.Store
	if st == nil {
		var err error
		if st, err = store.Open(opts.Config.Store, opts.Config.ResultsDir); err != nil {
			return nil, fmt.Errorf("failed to open result store: %w", err)
		}
	}

	return &Runtime{
		opts:     opts,
		cfg:      opts.Config,
		registry: opts.Registry,
		store:    st,
		logger:   logger,
	}, nil
}

// Config returns the active configuration.
func (r *Runtime) Config() *config.Config { return r.cfg }

// Registry returns the tool registry.
func (r *Runtime) Registry() *tool.Registry { return r.registry }

// Store returns the result store.
func (r *Runtime) Store() store.Store { return r.store }

// BuildTeam turns a definition into a TeamContext. Tools that are not
// registered or fail to construct are skipped with a warning.
func (r *Runtime) BuildTeam(def *config.TeamConfig) (*agent.TeamContext, error) {
	if def == nil {
		return nil, errors.New("team definition is required")
	}

	settings := r.cfg.ProviderSettings()

	teamModel, err := r.opts.TeamModel(def.Model.Provider, def.Model.Name, settings)
	if err != nil {
		return nil, fmt.Errorf("team %s: model %s: %w", def.Name, def.Model, err)
	}

	tc := agent.NewTeamContext(def.Name, def.Description, def.Rule, def.MaxSteps, teamModel)
	mode := r.outputMode(def)

	for _, ac := range def.Agents {
		var agentModel model.Client

		if !ac.Model.IsZero() {
			if agentModel, err = r.opts.AgentModel(ac.Model.Provider, ac.Model.Name, settings); err != nil {
				return nil, fmt.Errorf("agent %s: model %s: %w", ac.Name, ac.Model, err)
			}
		}

		a := agent.NewReasoningAgent(ac.Name, func(o *agent.Options) {
			o.Description = ac.Description
			o.SystemPrompt = ac.SystemPrompt
			o.Tools = r.createTools(def.Name, ac)
			o.MaxSteps = ac.MaxSteps
			o.Model = agentModel
			o.OutputMode = mode
			o.Output = r.opts.Output
			o.Logger = r.logger
			o.Metrics = r.opts.Metrics
		})

		tc.AddAgent(a)
	}

	r.logger.Debug("team.build", "team", def.Name, "agents", len(def.Agents), "model", def.Model.String(), "output_mode", string(mode))

	return tc, nil
}

// Orchestrator builds the team and wraps it in an orchestrator that
// persists to the runtime store.
func (r *Runtime) Orchestrator(def *config.TeamConfig) (*team.Orchestrator, error) {
	tc, err := r.BuildTeam(def)
	if err != nil {
		return nil, err
	}

	return team.New(tc, func(o *team.Options) {
		o.OutputMode = r.outputMode(def)
		o.Output = r.opts.Output
		o.Store = r.store
		o.Logger = r.logger
		o.Metrics = r.opts.Metrics
	}), nil
}

// Run builds the team, runs task to completion and exports metrics when a
// metrics file is configured. Run failures are reported through the result
// status; the error covers setup only.
func (r *Runtime) Run(ctx context.Context, def *config.TeamConfig, task string) (*core.TeamResult, error) {
	orch, err := r.Orchestrator(def)
	if err != nil {
		return nil, err
	}

	result := orch.Run(ctx, task)

	if path := r.cfg.MetricsFile; path != "" && r.opts.Metrics != nil {
		if err := r.opts.Metrics.WriteTextfile(path); err != nil {
			r.logger.Warn("metrics.export.error", "path", path, "error", err)
		}
	}

	return result, nil
}

// Close releases the result store.
func (r *Runtime) Close() error { return r.store.Close() }

func (r *Runtime) createTools(teamName string, ac config.AgentConfig) []tool.Tool {
	tools := make([]tool.Tool, 0, len(ac.Tools))

	for _, name := range ac.Tools {
		t, err := r.registry.Create(name)
		if err != nil {
			r.logger.Warn("team.tool.skipped", "team", teamName, "agent", ac.Name, "tool", name, "error", err)
			continue
		}

		tools = append(tools, t)
	}

	return tools
}

// outputMode picks the explicit override, then the team, then the config.
func (r *Runtime) outputMode(def *config.TeamConfig) agent.OutputMode {
	switch {
	case r.opts.OutputMode != "":
		return r.opts.OutputMode
	case def.OutputMode != "":
		return agent.ParseOutputMode(def.OutputMode)
	default:
		return agent.ParseOutputMode(r.cfg.OutputMode)
	}
}
