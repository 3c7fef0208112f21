package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrTemplateNotFound is returned when no template matches the lookup.
var ErrTemplateNotFound = errors.New("template not found")

// Template represents the schema of the templates table
type Template struct {
	ID        uint      `gorm:"primaryKey"`                   // Auto-incrementing primary key
	Name      string    `gorm:"size:255;not null;uniqueIndex"` // Template name chosen by the user
	JSONData  string    `gorm:"type:text;not null"`           // Stringified TemplateData
	PDFBlob   string    `gorm:"type:text;not null"`           // Base64 encoded PDF
	CreatedAt time.Time // Set by gorm
	UpdatedAt time.Time // Set by gorm
}

// InitializeDB initializes the SQLite database and migrates the schema
func InitializeDB() *gorm.DB {
	// Ensure db directory exists
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create db directory: %v", err)
	}

	dbPath := filepath.Join(dbDir, "templates.db")

	db, err := openDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return db
}

// openDB connects to the SQLite database at dsn and migrates the schema
// (create the table if it doesn't exist).
func openDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Template{}); err != nil {
		return nil, err
	}
	return db, nil
}

// SaveTemplate creates a template or overwrites the one with the same name.
func SaveTemplate(db *gorm.DB, record *Template) error {
	var existing Template
	err := db.Where("name = ?", record.Name).First(&existing).Error
	switch {
	case err == nil:
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		return db.Save(record).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Create(record).Error
	default:
		return err
	}
}

// GetTemplate retrieves a single template including its PDF.
func GetTemplate(db *gorm.DB, id uint) (*Template, error) {
	var record Template
	err := db.First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListTemplates retrieves all templates without their payloads, most recently updated first.
func ListTemplates(db *gorm.DB) ([]Template, error) {
	var records []Template
	result := db.Select("id", "name", "created_at", "updated_at").Order("updated_at desc").Find(&records)
	return records, result.Error
}

// DeleteTemplate removes a template.
func DeleteTemplate(db *gorm.DB, id uint) error {
	result := db.Delete(&Template{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
