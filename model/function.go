package model

import (
	"time"
)

// CategoryGeneral is the category assigned when the caller provides none.
const CategoryGeneral = "general"

// Function represents a named, validated, reusable code entry with its
// metadata and usage statistics.
type Function struct {
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UsageCount  int       `json:"usageCount"`
	LastUsedAt  time.Time `json:"lastUsedAt,omitempty"`
}

// HasTag reports whether the function carries at least one of the wanted
// tags. An empty wanted list matches everything.
func (f Function) HasTag(wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}

	for _, w := range wanted {
		for _, t := range f.Tags {
			if t == w {
				return true
			}
		}
	}
	return false
}
