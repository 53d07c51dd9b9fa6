// Package models holds the GORM persistence models and their domain mappings.
package models
