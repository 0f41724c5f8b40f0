package models

// ModelRegistry lists every model AutoMigrate manages in development.
var ModelRegistry = []any{
	&WaitlistEntry{},
	&AuditRecord{},
}
