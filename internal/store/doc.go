// Package store provides SQLite-backed durable storage for linkage plans.
//
// Plans are content-addressed: the plan hash is unique, so saving an
// unchanged definition again returns the record saved first. Each record
// carries a generated id, the plan as JSON and the warnings raised while
// building it.
//
// # Deterministic Reads
//
// All list queries order by created_at ASC, id ASC COLLATE BINARY so the
// same database always yields the same sequence.
//
// # Schema Versions
//
// The tables in schema.sql are version 0. Later indexes are applied as
// numbered migrations tracked in PRAGMA user_version, so opening an old
// store upgrades it in place.
package store
