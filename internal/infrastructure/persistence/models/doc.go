// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities so the domain layer stays free of
// ORM tags.
//
// Enumerations are stored as their lowercase legacy codes ("unpaid", "wechat", ...)
// and decoded back into closed domain variants on read; an unknown code is an error.
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - bill.go: bills and bill_items
// - identity.go: read-only projections of users and departments
package models
