package admin

import "github.com/spiralwrks/spiralworks.ai/config/router"

type AdminServiceFactory interface {
	CreateService() AdminService
	CreateController() *router.RESTController
}

type DefaultAdminServiceFactory struct {
	deps Dependencies
}

func NewAdminServiceFactory(deps Dependencies) AdminServiceFactory {
	return &DefaultAdminServiceFactory{deps: deps}
}

func (f *DefaultAdminServiceFactory) CreateService() AdminService {
	return NewAdminService(f.deps.Logger, NewAdminRepository(f.deps.DB), f.deps.Recorder, f.deps.Batches)
}

func (f *DefaultAdminServiceFactory) CreateController() *router.RESTController {
	return NewAdminController(f.deps, f.CreateService())
}
