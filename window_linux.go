//go:build linux
// +build linux

package main

// ScreenInfoExtended represents screen information with position
type ScreenInfoExtended struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	IsPrimary bool    `json:"isPrimary"`
	Index     int     `json:"index"`
}

// GetAllScreensWithPosition is not supported on Linux, saved window
// positions are accepted as-is.
func GetAllScreensWithPosition() []ScreenInfoExtended {
	return []ScreenInfoExtended{}
}
