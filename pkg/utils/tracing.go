package utils

import "strconv"

const defaultServiceName = "spiralworks-waitlist"

// IsTracingEnabled reads OTEL_TRACES_ENABLED; anything unparsable is off.
func IsTracingEnabled() bool {
	enabled, err := strconv.ParseBool(GetEnvTrimmed("OTEL_TRACES_ENABLED"))
	return err == nil && enabled
}

func OTelServiceName() string {
	return GetEnvTrimmedOrDefault("OTEL_SERVICE_NAME", defaultServiceName)
}
