package tuning

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the YAML layout used to seed parameters and strategies.
type CatalogFile struct {
	Parameters []ParameterSpec `yaml:"parameters"`
	Strategies []Strategy      `yaml:"strategies"`
}

// LoadCatalogFile reads and parses a catalog YAML file.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var cf CatalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return &cf, nil
}

// seedNamespace scopes the name-derived IDs of strategies seeded without one.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/BaSui01/tuneflow/strategies"))

// SeedStrategyID is the ID given to a seeded strategy that has no id.
// It depends only on the strategy name, so reseeding finds the same record.
func SeedStrategyID(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}

// SeedCatalog creates every entry of cf that is not stored yet. Existing
// entries are left untouched so seeding is idempotent.
func SeedCatalog(ctx context.Context, store Store, cf *CatalogFile, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, spec := range cf.Parameters {
		p, err := NewParameter(spec)
		if err != nil {
			return err
		}
		switch err := store.CreateParameter(ctx, p); {
		case errors.Is(err, ErrAlreadyExists):
			logger.Debug("parameter already seeded", zap.String("parameter", p.Name))
		case err != nil:
			return fmt.Errorf("seed parameter %s: %w", p.Name, err)
		}
	}

	for _, raw := range cf.Strategies {
		if raw.ID == "" && raw.Name != "" {
			raw.ID = SeedStrategyID(raw.Name)
		}
		st, err := NewStrategy(raw)
		if err != nil {
			return err
		}
		switch err := store.CreateStrategy(ctx, st); {
		case errors.Is(err, ErrAlreadyExists):
			logger.Debug("strategy already seeded", zap.String("strategy_id", st.ID))
		case err != nil:
			return fmt.Errorf("seed strategy %s: %w", st.ID, err)
		}
	}

	logger.Info("catalog seeded",
		zap.Int("parameters", len(cf.Parameters)),
		zap.Int("strategies", len(cf.Strategies)))
	return nil
}
