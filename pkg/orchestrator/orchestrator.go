package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/samogod/musegen/pkg/checkpoint"
	"github.com/samogod/musegen/pkg/config"
	"github.com/samogod/musegen/pkg/database"
	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/modelconfig"
	"github.com/samogod/musegen/pkg/sampler"
	"github.com/samogod/musegen/pkg/session"
)

var DebugLog func(string, ...interface{})

type Orchestrator struct {
	config        *config.Config
	configManager *config.Manager
	logger        *logrus.Logger
	db            *database.DB
	registry      *modelconfig.Registry
	backend       sampler.Backend
	out           io.Writer
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WARN]"
	case logrus.ErrorLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}
	return []byte(fmt.Sprintf("%s %s\n", levelText, entry.Message)), nil
}

func NewOrchestrator(configPath string) (*Orchestrator, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&customFormatter{})

	configManager := config.NewManager(configPath)
	if err := configManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := configManager.GetConfig()

	registry, err := BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warnf("Database initialization failed: %v", err)
	}

	return &Orchestrator{
		config:        cfg,
		configManager: configManager,
		logger:        logger,
		db:            db,
		registry:      registry,
		out:           os.Stdout,
	}, nil
}

// BuildRegistry registers the builtin configurations followed by the ones
// declared in the settings file, in declaration order, and freezes the
// result. A declared configuration may derive from any configuration
// registered before it.
func BuildRegistry(cfg *config.Config) (*modelconfig.Registry, error) {
	registry := modelconfig.NewRegistry()
	if err := modelconfig.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("failed to register builtin configs: %w", err)
	}

	for _, def := range cfg.Configs {
		base, err := registry.Lookup(def.Base)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", def.Name, err)
		}

		overrides, err := hparams.Normalize(def.HParams)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", def.Name, err)
		}

		changes := make(map[string]any)
		if def.TrainExamplesPath != "" {
			changes[modelconfig.FieldTrainExamplesPath] = def.TrainExamplesPath
		}
		if def.EvalExamplesPath != "" {
			changes[modelconfig.FieldEvalExamplesPath] = def.EvalExamplesPath
		}
		if def.DatasetID != "" {
			changes[modelconfig.FieldDatasetID] = def.DatasetID
		}

		derived, err := modelconfig.Derive(base, overrides, cfg.Generation.StrictHParams, changes)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", def.Name, err)
		}

		if err := registry.Register(def.Name, derived); err != nil {
			return nil, fmt.Errorf("config %s: %w", def.Name, err)
		}

		if DebugLog != nil {
			DebugLog("registered config %s (base %s, %d hparams overridden)", def.Name, def.Base, len(overrides))
		}
	}

	registry.Freeze()
	return registry, nil
}

func (o *Orchestrator) GetConfig() *config.Config {
	return o.config
}

func (o *Orchestrator) GetDB() *database.DB {
	return o.db
}

func (o *Orchestrator) Registry() *modelconfig.Registry {
	return o.registry
}

// SetBackend replaces the inference backend. Without one, the configured
// sampler script is run.
func (o *Orchestrator) SetBackend(b sampler.Backend) {
	o.backend = b
}

// SetOutput redirects per-file result lines, which go to stdout by default.
func (o *Orchestrator) SetOutput(w io.Writer) {
	o.out = w
}

func (o *Orchestrator) SetLogLevel(level logrus.Level) {
	o.logger.SetLevel(level)
}

func (o *Orchestrator) sampleBackend() (sampler.Backend, error) {
	if o.backend != nil {
		return o.backend, nil
	}
	return sampler.NewProcess(o.config.Sampler.Python, o.config.Sampler.Script)
}

func (o *Orchestrator) newResolver(force bool) *checkpoint.Resolver {
	sess := session.New(0)
	r := checkpoint.NewResolver(o.config.Checkpoints.CacheDir, sess.Client)
	r.ForceDownload(force)
	return r
}

func (o *Orchestrator) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, time.Duration(o.config.DefaultSettings.Timeout)*time.Minute)
}

// History returns recorded generations, newest first.
func (o *Orchestrator) History(ctx context.Context, configName string, limit int) ([]database.GenerationRecord, error) {
	if o.db == nil {
		return nil, fmt.Errorf("database is not enabled")
	}
	return o.db.QueryGenerations(ctx, configName, limit)
}

func (o *Orchestrator) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}
