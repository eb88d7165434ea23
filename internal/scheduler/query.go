package scheduler

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/FWeynschenk/dotsmap/internal/projection"
)

// Query are the parameters of one grid classification.
type Query struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	ProjectionName string `json:"projectionName"`
	Spacing        int    `json:"spacing"`
	IncludeOcean   bool   `json:"includeOceanDots"`
}

// Validate checks ranges and the projection name.
func (q Query) Validate() error {
	if q.Width <= 0 || q.Height <= 0 {
		return eris.Errorf("scheduler: invalid dimensions %dx%d", q.Width, q.Height)
	}
	if q.Spacing < 1 {
		return eris.Errorf("scheduler: invalid spacing %d", q.Spacing)
	}
	if _, err := projection.New(q.ProjectionName, q.Width, q.Height); err != nil {
		return err
	}
	return nil
}

// Fingerprint returns the stable cache key for the query: every parameter
// that affects the result, joined in fixed order.
func (q Query) Fingerprint() string {
	return fmt.Sprintf("%s|%d|%d|%d|%t",
		q.ProjectionName, q.Width, q.Height, q.Spacing, q.IncludeOcean)
}
