// Package store keeps answer keys (in memory or Redis) and graded sheets (in
// memory or PostgreSQL through gorm).
package store
