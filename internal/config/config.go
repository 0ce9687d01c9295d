// Package config loads and validates the advisor configuration from a
// YAML file and ADVISOR_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/logging"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/validator"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/pkg/feasibility"
)

const (
	defaultMaxLoop               = 3
	defaultRelevanceThreshold    = 1
	defaultGroundednessThreshold = 1
	defaultCallTimeout           = 30 * time.Second
)

// ReflectionConfig controls the self-correction loops.
type ReflectionConfig struct {
	// Enabled turns reflection on. When false the advisor performs a
	// single retrieve-and-generate pass with no scoring calls.
	Enabled bool `mapstructure:"enabled"`

	// MaxLoop bounds each reflection phase independently. Zero means
	// the first attempt is also the last.
	MaxLoop int `mapstructure:"maxLoop"`

	// RelevanceThreshold is the minimum 0..2 score for retrieved
	// context to be accepted.
	RelevanceThreshold int `mapstructure:"relevanceThreshold"`

	// GroundednessThreshold is the minimum 0..2 score for a generated
	// response to be accepted.
	GroundednessThreshold int `mapstructure:"groundednessThreshold"`

	// CallTimeout bounds every individual collaborator call.
	CallTimeout time.Duration `mapstructure:"callTimeout"`
}

// WorkloadConfig describes the inference workload being sized.
type WorkloadConfig struct {
	ModelParamsBillions float64 `mapstructure:"modelParamsBillions"`
	Precision           string  `mapstructure:"precision"`
	ConcurrentRequests  int     `mapstructure:"concurrentRequests"`
}

// ProvidersConfig locates the external collaborators.
type ProvidersConfig struct {
	// RetrievalEndpoint is the base URL of the retrieval service.
	RetrievalEndpoint string `mapstructure:"retrievalEndpoint"`

	// Model is the generation model name passed to the LLM backend.
	Model string `mapstructure:"model"`
}

// AdvisorConfig is the root configuration of the sizing advisor.
type AdvisorConfig struct {
	Reflection ReflectionConfig `mapstructure:"reflection"`
	Workload   WorkloadConfig   `mapstructure:"workload"`

	// TargetGPU is the GPU model available in the inventory.
	TargetGPU string `mapstructure:"targetGPU"`

	// CapacityFile optionally points at a YAML file overriding the
	// built-in GPU capacity table.
	CapacityFile string `mapstructure:"capacityFile"`

	Providers ProvidersConfig `mapstructure:"providers"`

	// Capacity is the effective capacity table after loading.
	Capacity feasibility.CapacityTable `mapstructure:"-"`
}

// Load reads the configuration file at path (optional, may be empty),
// applies ADVISOR_ environment overrides and defaults, and resolves the
// capacity table.
func Load(path string) (*AdvisorConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("reflection.enabled", false)
	v.SetDefault("reflection.maxLoop", defaultMaxLoop)
	v.SetDefault("reflection.relevanceThreshold", defaultRelevanceThreshold)
	v.SetDefault("reflection.groundednessThreshold", defaultGroundednessThreshold)
	v.SetDefault("reflection.callTimeout", defaultCallTimeout)
	v.SetDefault("workload.modelParamsBillions", 0)
	v.SetDefault("workload.precision", string(feasibility.PrecisionFP16))
	v.SetDefault("workload.concurrentRequests", 1)
	v.SetDefault("targetGPU", "L40S")
	v.SetDefault("capacityFile", "")
	v.SetDefault("providers.retrievalEndpoint", "")
	v.SetDefault("providers.model", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &AdvisorConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	table := feasibility.DefaultCapacityTable()
	if cfg.CapacityFile != "" {
		loaded, err := LoadCapacityTable(cfg.CapacityFile)
		if err != nil {
			return nil, err
		}
		table = loaded
	}
	cfg.Capacity = table

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *AdvisorConfig) Validate() error {
	if c.Reflection.MaxLoop < 0 {
		return fmt.Errorf("reflection.maxLoop cannot be negative, got %d", c.Reflection.MaxLoop)
	}
	if c.Reflection.CallTimeout <= 0 {
		return fmt.Errorf("reflection.callTimeout must be positive, got %s", c.Reflection.CallTimeout)
	}
	for name, score := range map[string]int{
		"reflection.relevanceThreshold":    c.Reflection.RelevanceThreshold,
		"reflection.groundednessThreshold": c.Reflection.GroundednessThreshold,
	} {
		if score < 0 || score > 2 {
			return fmt.Errorf("%s must be between 0 and 2, got %d", name, score)
		}
	}
	if _, err := feasibility.ParsePrecision(c.Workload.Precision); err != nil {
		return fmt.Errorf("workload.precision: %w", err)
	}
	if c.Workload.ModelParamsBillions <= 0 {
		return fmt.Errorf("workload.modelParamsBillions must be positive, got %v", c.Workload.ModelParamsBillions)
	}
	if c.Workload.ConcurrentRequests < 0 {
		return fmt.Errorf("workload.concurrentRequests cannot be negative, got %d", c.Workload.ConcurrentRequests)
	}
	if len(c.Capacity) == 0 {
		return fmt.Errorf("capacity table is empty")
	}
	if _, ok := c.Capacity.Capacity(c.TargetGPU); !ok {
		return fmt.Errorf("targetGPU %q not present in capacity table %v", c.TargetGPU, c.Capacity.Models())
	}
	return nil
}

// ValidatorWorkload converts the workload configuration into the
// validator's workload type. Validate must have succeeded first.
func (c *AdvisorConfig) ValidatorWorkload() validator.Workload {
	precision, _ := feasibility.ParsePrecision(c.Workload.Precision)
	return validator.Workload{
		ModelParamsBillions: c.Workload.ModelParamsBillions,
		Precision:           precision,
		ConcurrentRequests:  c.Workload.ConcurrentRequests,
	}
}

type capacityFile struct {
	GPUs []capacityEntry `yaml:"gpus"`
}

type capacityEntry struct {
	Model      string `yaml:"model"`
	CapacityGB int    `yaml:"capacityGB"`
}

// LoadCapacityTable parses a GPU capacity table from a YAML file of the
// form:
//
//	gpus:
//	  - model: L40S
//	    capacityGB: 48
//
// Entries with a missing model or non-positive capacity are skipped
// with a warning rather than failing the load.
func LoadCapacityTable(path string) (feasibility.CapacityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capacity file %s: %w", path, err)
	}

	var file capacityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse capacity file %s: %w", path, err)
	}

	table := make(feasibility.CapacityTable, len(file.GPUs))
	for _, entry := range file.GPUs {
		if entry.Model == "" || entry.CapacityGB <= 0 {
			logging.Log.Info("skipping invalid capacity entry",
				"model", entry.Model, "capacityGB", entry.CapacityGB)
			continue
		}
		if _, dup := table[entry.Model]; dup {
			logging.Log.Info("skipping duplicate capacity entry", "model", entry.Model)
			continue
		}
		table[entry.Model] = entry.CapacityGB
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("capacity file %s contains no valid entries", path)
	}
	return table, nil
}
