package admin

import (
	"testing"

	"github.com/spiralwrks/spiralworks.ai/internal/audit"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAdminServiceFactory_CreateServiceFillsBatchDefaults(t *testing.T) {
	factory := NewAdminServiceFactory(Dependencies{
		Logger:   log.NewDiscardLogger(),
		Recorder: audit.NewMockRecorder(gomock.NewController(t)),
	})

	svc, ok := factory.CreateService().(*adminService)
	require.True(t, ok)
	assert.Equal(t, DefaultBatchConfig(), svc.batches)

	assert.NotNil(t, factory.CreateController())
}
