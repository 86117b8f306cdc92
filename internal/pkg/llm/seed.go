package llm

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCatalog inserts every catalog model that is not stored yet. Existing
// rows are left untouched, so calling it repeatedly is safe.
func SeedCatalog(db *gorm.DB, c *Catalog) error {
	for _, d := range c.Models {
		row := d.Row()
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("seed model %s: %w", d.Name, err)
		}
	}
	return nil
}
