package generation

import (
	"fmt"
	"sort"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// ProviderSet maps model selectors to their image providers. The set is fixed
// at construction; an unknown selector is an executor error, not a fallback.
type ProviderSet struct {
	providers map[string]protocol.ImageProvider
	costs     map[string]int
}

const defaultImageCost = 5

func NewProviderSet() *ProviderSet {
	return &ProviderSet{
		providers: make(map[string]protocol.ImageProvider),
		costs:     make(map[string]int),
	}
}

// Register binds a model selector to a provider with a per-image credit cost.
func (s *ProviderSet) Register(model string, provider protocol.ImageProvider, creditCost int) {
	s.providers[model] = provider
	s.costs[model] = creditCost
}

// Provider resolves a model selector.
func (s *ProviderSet) Provider(model string) (protocol.ImageProvider, error) {
	provider, ok := s.providers[model]
	if !ok {
		return nil, fmt.Errorf("unknown generation model %q", model)
	}

	return provider, nil
}

// CreditCost returns the per-image cost of a model, or the default for models
// not explicitly priced.
func (s *ProviderSet) CreditCost(model string) int {
	if cost, ok := s.costs[model]; ok {
		return cost
	}

	return defaultImageCost
}

// Models lists the registered model selectors in stable order.
func (s *ProviderSet) Models() []string {
	models := make([]string, 0, len(s.providers))

	for model := range s.providers {
		models = append(models, model)
	}

	sort.Strings(models)

	return models
}
