package waitlist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spiralwrks/spiralworks.ai/config/router"
)

type WaitlistServiceFactory interface {
	CreateService(registerer prometheus.Registerer) WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	deps Dependencies
}

func NewWaitlistServiceFactory(deps Dependencies) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{deps: deps}
}

func (f *DefaultWaitlistServiceFactory) CreateService(registerer prometheus.Registerer) WaitlistService {
	repository := NewWaitlistRepository(f.deps.DB)
	return NewWaitlistService(f.deps.Logger, repository, f.deps.Limiter, f.deps.Tokens, f.deps.Notifier, registerer)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.deps, f.CreateService)
}
