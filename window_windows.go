//go:build windows
// +build windows

package main

import (
	"syscall"
	"unsafe"

	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// RECT structure
type RECT struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// MONITORINFO structure
type MONITORINFO struct {
	CbSize    uint32
	RcMonitor RECT
	RcWork    RECT
	DwFlags   uint32
}

// ScreenInfoExtended represents screen information with position
type ScreenInfoExtended struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	IsPrimary bool    `json:"isPrimary"`
	Index     int     `json:"index"`
}

var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	procEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfo      = user32.NewProc("GetMonitorInfoW")
)

// monitorEnumData is used to pass data to the enumeration callback
type monitorEnumData struct {
	screens []ScreenInfoExtended
	index   int
}

// GetAllScreensWithPosition returns all screens with their absolute positions
func GetAllScreensWithPosition() []ScreenInfoExtended {
	data := &monitorEnumData{
		screens: make([]ScreenInfoExtended, 0),
		index:   0,
	}

	callback := syscall.NewCallback(func(hMonitor uintptr, hdcMonitor uintptr, lprcMonitor uintptr, dwData uintptr) uintptr {
		enumData := (*monitorEnumData)(unsafe.Pointer(dwData))

		var info MONITORINFO
		info.CbSize = uint32(unsafe.Sizeof(info))

		ret, _, _ := procGetMonitorInfo.Call(hMonitor, uintptr(unsafe.Pointer(&info)))
		if ret == 0 {
			logger.Warn("Failed to get monitor info")
			return 1 // Continue enumeration
		}

		isPrimary := (info.DwFlags & 0x00000001) != 0

		screen := ScreenInfoExtended{
			X:         float64(info.RcMonitor.Left),
			Y:         float64(info.RcMonitor.Top),
			Width:     float64(info.RcMonitor.Right - info.RcMonitor.Left),
			Height:    float64(info.RcMonitor.Bottom - info.RcMonitor.Top),
			IsPrimary: isPrimary,
			Index:     enumData.index,
		}

		enumData.screens = append(enumData.screens, screen)
		enumData.index++

		return 1 // Continue enumeration
	})

	ret, _, err := procEnumDisplayMonitors.Call(
		0, // NULL HDC to enumerate all displays
		0, // NULL RECT to enumerate all displays
		callback,
		uintptr(unsafe.Pointer(data)),
	)

	if ret == 0 {
		logger.Error("EnumDisplayMonitors failed", zap.Error(err))
		return []ScreenInfoExtended{}
	}

	logger.Debug("Enumerated monitors", zap.Int("count", len(data.screens)))
	return data.screens
}
