package db

import (
	"fmt"
	"log"

	"urltracker/internal/model"

	"gorm.io/gorm"
)

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB) error {
	log.Println("Starting database migration...")

	// List of all models to migrate
	models := []interface{}{
		&model.User{},
		&model.Redirect{},
		&model.ClientError{},
		&model.Occurrence{},
		&model.IgnoreRule{},
		&model.ContentNode{},
	}

	// Run AutoMigrate for all models
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("✓ Database migration completed successfully (%d tables)", len(models))
	return nil
}

// defaultIgnorePatterns suppress common bot and asset probes that would
// otherwise flood the miss tables.
var defaultIgnorePatterns = []struct {
	path    string
	pattern string
	notes   string
}{
	{path: "/favicon.ico", notes: "browser default probe"},
	{path: "/robots.txt", notes: "crawler probe"},
	{path: "/apple-touch-icon.png", notes: "iOS icon probe"},
	{pattern: `/wp-(login|admin)(/.*)?`, notes: "wordpress scanner"},
	{pattern: `/\.well-known/.*`, notes: "well-known probes"},
}

// SeedIgnoreList installs the default ignore entries once. Existing entries
// are left alone so admin edits survive restarts.
func SeedIgnoreList(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.IgnoreRule{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count ignore rules: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, seed := range defaultIgnorePatterns {
		rule := model.IgnoreRule{Notes: seed.notes}
		if seed.path != "" {
			rule.Path = model.SPtr(seed.path)
		} else {
			rule.Pattern = model.SPtr(seed.pattern)
		}
		if err := db.Create(&rule).Error; err != nil {
			return fmt.Errorf("failed to seed ignore rule %q: %w", seed.notes, err)
		}
	}

	log.Printf("✓ Seeded %d default ignore rules", len(defaultIgnorePatterns))
	return nil
}
