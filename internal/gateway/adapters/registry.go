package adapters

import (
	"strings"

	"github.com/smallbiznis/sitebuilder/internal/gateway/domain"
)

type Registry struct {
	factories map[string]domain.AdapterFactory
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	registry := &Registry{factories: map[string]domain.AdapterFactory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		gateway := strings.ToLower(strings.TrimSpace(factory.Gateway()))
		if gateway == "" {
			continue
		}
		registry.factories[gateway] = factory
	}
	return registry
}

func (r *Registry) Exists(gateway string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[strings.ToLower(strings.TrimSpace(gateway))]
	return ok
}

func (r *Registry) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	if r == nil {
		return nil, domain.ErrInvalidGateway
	}
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(cfg.Gateway))]
	if !ok {
		return nil, domain.ErrInvalidGateway
	}
	return factory.NewAdapter(cfg)
}
