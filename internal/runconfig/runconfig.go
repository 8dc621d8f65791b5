// Package runconfig loads optimization run specifications from YAML/JSON
// files: the tunable parameter definitions plus the optimization settings.
package runconfig

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/quantlab/optimizer/pkg/optimizer"
)

// RunFile mirrors the on-disk run specification
type RunFile struct {
	Parameters   []ParameterSpec  `mapstructure:"parameters"`
	Optimization OptimizationSpec `mapstructure:"optimization"`
}

// ParameterSpec describes one tunable parameter in a run file
type ParameterSpec struct {
	Name        string  `mapstructure:"name"`
	Kind        string  `mapstructure:"kind"`
	Default     float64 `mapstructure:"default"`
	Min         float64 `mapstructure:"min"`
	Max         float64 `mapstructure:"max"`
	Optimizable bool    `mapstructure:"optimizable"`
}

// OptimizationSpec mirrors the engine configuration surface
type OptimizationSpec struct {
	Method               string           `mapstructure:"method"`
	Objective            string           `mapstructure:"objective"`
	MaxIterations        int              `mapstructure:"max_iterations"`
	PopulationSize       int              `mapstructure:"population_size"`
	ConvergenceThreshold float64          `mapstructure:"convergence_threshold"`
	TimeoutSeconds       int              `mapstructure:"timeout_seconds"`
	ParallelWorkers      int              `mapstructure:"parallel_workers"`
	RandomSeed           *int64           `mapstructure:"random_seed"`
	Constraints          []ConstraintSpec `mapstructure:"constraints"`
}

// ConstraintSpec is one hard metric bound in a run file
type ConstraintSpec struct {
	Metric string  `mapstructure:"metric"`
	Op     string  `mapstructure:"op"`
	Bound  float64 `mapstructure:"bound"`
}

// Load reads a run file and converts it into engine inputs. Environment
// variables prefixed with OPTIMIZER_ override file values. Custom objectives
// require a Go function and cannot be expressed in a run file.
func Load(path string) ([]optimizer.ParameterDefinition, optimizer.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("OPTIMIZER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, optimizer.Config{}, fmt.Errorf("failed to read run config: %w", err)
	}

	var rf RunFile
	if err := v.Unmarshal(&rf); err != nil {
		return nil, optimizer.Config{}, fmt.Errorf("failed to unmarshal run config: %w", err)
	}

	return convert(rf)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("optimization.method", "random")
	v.SetDefault("optimization.objective", "sharpe_ratio")
	v.SetDefault("optimization.max_iterations", 100)
	v.SetDefault("optimization.population_size", 50)
	v.SetDefault("optimization.convergence_threshold", 0.0)
	v.SetDefault("optimization.timeout_seconds", 300)
	v.SetDefault("optimization.parallel_workers", 4)
}

// convert maps the file representation onto engine types and validates it.
func convert(rf RunFile) ([]optimizer.ParameterDefinition, optimizer.Config, error) {
	if len(rf.Parameters) == 0 {
		return nil, optimizer.Config{}, fmt.Errorf("run config declares no parameters")
	}
	if rf.Optimization.Objective == string(optimizer.ObjectiveCustom) {
		return nil, optimizer.Config{}, fmt.Errorf("custom objectives require a Go function and cannot be loaded from a run file")
	}

	defs := make([]optimizer.ParameterDefinition, len(rf.Parameters))
	for i, p := range rf.Parameters {
		defs[i] = optimizer.ParameterDefinition{
			Name:        p.Name,
			Kind:        optimizer.ParameterKind(p.Kind),
			Default:     p.Default,
			Min:         p.Min,
			Max:         p.Max,
			Optimizable: p.Optimizable,
		}
		if err := defs[i].Validate(); err != nil {
			return nil, optimizer.Config{}, err
		}
	}

	constraints := make([]optimizer.Constraint, len(rf.Optimization.Constraints))
	for i, c := range rf.Optimization.Constraints {
		constraints[i] = optimizer.Constraint{
			Metric: c.Metric,
			Op:     optimizer.ConstraintOp(c.Op),
			Bound:  c.Bound,
		}
	}

	cfg := optimizer.Config{
		Method:               optimizer.Method(rf.Optimization.Method),
		Objective:            optimizer.Objective(rf.Optimization.Objective),
		MaxIterations:        rf.Optimization.MaxIterations,
		PopulationSize:       rf.Optimization.PopulationSize,
		ConvergenceThreshold: rf.Optimization.ConvergenceThreshold,
		Timeout:              time.Duration(rf.Optimization.TimeoutSeconds) * time.Second,
		ParallelWorkers:      rf.Optimization.ParallelWorkers,
		RandomSeed:           rf.Optimization.RandomSeed,
		Constraints:          constraints,
	}
	if err := cfg.Validate(); err != nil {
		return nil, optimizer.Config{}, err
	}

	return defs, cfg, nil
}
