package common

import (
	"fmt"
	"os"
	"path/filepath"

	"presale-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// StageDefinition is one stage entry in the stages.yaml seed file. Amounts
// are strings so they round-trip through decimal without float drift.
type StageDefinition struct {
	Number          int    `yaml:"stage"`
	Price           string `yaml:"price"`
	TokensAvailable string `yaml:"tokens_available"`
	Active          bool   `yaml:"active"`
}

type stagesFile struct {
	Stages []StageDefinition `yaml:"stages"`
}

// LoadStageConfig reads and validates a stage seed file. Exactly zero or one
// stage may be marked active.
func LoadStageConfig(stagesFileName string) ([]store.StageParams, error) {
	var stagesPath string
	if filepath.IsAbs(stagesFileName) {
		stagesPath = stagesFileName
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		stagesPath = filepath.Join(wd, stagesFileName)
	}

	data, err := os.ReadFile(stagesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", stagesFileName, err)
	}

	var config stagesFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", stagesFileName, err)
	}
	if len(config.Stages) == 0 {
		return nil, fmt.Errorf("%s defines no stages", stagesFileName)
	}

	activeCount := 0
	params := make([]store.StageParams, 0, len(config.Stages))
	for i, def := range config.Stages {
		if def.Number <= 0 {
			return nil, fmt.Errorf("stage at index %d has invalid stage number %d", i, def.Number)
		}
		price, err := decimal.NewFromString(def.Price)
		if err != nil {
			return nil, fmt.Errorf("stage %d has invalid price %q: %w", def.Number, def.Price, err)
		}
		available, err := decimal.NewFromString(def.TokensAvailable)
		if err != nil {
			return nil, fmt.Errorf("stage %d has invalid tokens_available %q: %w", def.Number, def.TokensAvailable, err)
		}
		if def.Active {
			activeCount++
		}
		params = append(params, store.StageParams{
			Number:          def.Number,
			Price:           price,
			TokensAvailable: available,
			Active:          def.Active,
		})
	}

	if activeCount > 1 {
		return nil, fmt.Errorf("%s marks %d stages active; at most one is allowed", stagesFileName, activeCount)
	}

	return params, nil
}
