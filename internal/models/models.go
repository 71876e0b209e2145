package models

import (
	"time"
)

// Reading is one timestamped meter-value observation. Values are cubic
// metres as shown on the meter face and only ever grow on a healthy meter,
// though nothing here enforces that.
type Reading struct {
	ID         int64     `json:"id"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	Automatic  bool      `json:"automatic"`
	CreatedAt  time.Time `json:"created_at"`
}
