// Package ranking maintains the materialized read models that power project
// ranking. Sweeps refresh them once per run, in batch, never per project.
package ranking

import (
	"fmt"

	"gorm.io/gorm"
)

// Refresher refreshes the dependent read models after a sweep
type Refresher interface {
	RefreshProjectViews() error
}

// ViewRefresher refreshes the Postgres materialized views
type ViewRefresher struct {
	db *gorm.DB
}

// NewViewRefresher creates a view refresher
func NewViewRefresher(db *gorm.DB) *ViewRefresher {
	return &ViewRefresher{db: db}
}

// RefreshProjectViews refreshes the project ranking views
func (r *ViewRefresher) RefreshProjectViews() error {
	for _, view := range []string{"project_power_view", "project_future_power_view"} {
		if err := r.db.Exec("REFRESH MATERIALIZED VIEW CONCURRENTLY " + view).Error; err != nil {
			return fmt.Errorf("failed to refresh %s: %w", view, err)
		}
	}
	return nil
}
