package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, GetEnvDurationOrDefault("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, GetEnvDurationOrDefault("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "-5s")
	assert.Equal(t, time.Second, GetEnvDurationOrDefault("TEST_DURATION", time.Second))
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("TEST_BOOL", "false")
	assert.False(t, GetEnvBoolOrDefault("TEST_BOOL", true))

	t.Setenv("TEST_BOOL", "")
	assert.True(t, GetEnvBoolOrDefault("TEST_BOOL", true))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", " a:9092, ,b:9092 ")
	assert.Equal(t, []string{"a:9092", "b:9092"}, GetEnvList("TEST_LIST"))

	t.Setenv("TEST_LIST", "")
	assert.Empty(t, GetEnvList("TEST_LIST"))
}

func TestOTelServiceName(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	assert.Equal(t, "spiralworks-waitlist", OTelServiceName())

	t.Setenv("OTEL_SERVICE_NAME", "waitlist-canary")
	assert.Equal(t, "waitlist-canary", OTelServiceName())
}

func TestGetEnvPositiveIntOrDefault(t *testing.T) {
	t.Setenv("TEST_INT", "250")
	assert.Equal(t, 250, GetEnvPositiveIntOrDefault("TEST_INT", 100))

	t.Setenv("TEST_INT", "0")
	assert.Equal(t, 100, GetEnvPositiveIntOrDefault("TEST_INT", 100))

	t.Setenv("TEST_INT", "lots")
	assert.Equal(t, 100, GetEnvPositiveIntOrDefault("TEST_INT", 100))
}
