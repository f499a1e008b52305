// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel and VersionedModel shared by every table
// - rental.go: tenants, rent_cycles and payments
//
// Mappers (ToDomain / FromDomain) convert between models and domain types.
// The models avoid postgres-only column defaults so the same structs can be
// auto-migrated on SQLite in tests. The production schema lives in migrations/.
package models
