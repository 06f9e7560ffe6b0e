//go:build darwin
// +build darwin

package main

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AppKit
#import <Cocoa/Cocoa.h>
#import <AppKit/AppKit.h>

typedef struct {
    double x, y, width, height;
    int isPrimary;
    int index;
} ScreenInfo;

// Get all screens with their absolute positions
ScreenInfo* getAllScreensWithPosition(int* count) {
    @autoreleasepool {
        NSArray *screens = [NSScreen screens];
        *count = (int)[screens count];

        if (*count == 0) {
            return NULL;
        }

        ScreenInfo* result = (ScreenInfo*)malloc(sizeof(ScreenInfo) * (*count));

        NSScreen *mainScreen = [NSScreen mainScreen];

        for (int i = 0; i < *count; i++) {
            NSScreen *screen = [screens objectAtIndex:i];
            NSRect frame = [screen frame];

            result[i].x = frame.origin.x;
            result[i].y = frame.origin.y;
            result[i].width = frame.size.width;
            result[i].height = frame.size.height;
            result[i].isPrimary = (screen == mainScreen) ? 1 : 0;
            result[i].index = i;
        }

        return result;
    }
}

// Free allocated memory
void freeScreenInfo(ScreenInfo* info) {
    if (info != NULL) {
        free(info);
    }
}
*/
import "C"
import (
	"unsafe"

	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
)

// ScreenInfoExtended represents screen information with position
type ScreenInfoExtended struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	IsPrimary bool    `json:"isPrimary"`
	Index     int     `json:"index"`
}

// GetAllScreensWithPosition returns all screens with their absolute positions
func GetAllScreensWithPosition() []ScreenInfoExtended {
	var count C.int
	cScreens := C.getAllScreensWithPosition(&count)
	if cScreens == nil || count == 0 {
		logger.Warn("No screens found")
		return []ScreenInfoExtended{}
	}
	defer C.freeScreenInfo(cScreens)

	// Convert C array to Go slice
	screens := (*[1 << 30]C.ScreenInfo)(unsafe.Pointer(cScreens))[:count:count]
	result := make([]ScreenInfoExtended, count)

	for i := 0; i < int(count); i++ {
		result[i] = ScreenInfoExtended{
			X:         float64(screens[i].x),
			Y:         float64(screens[i].y),
			Width:     float64(screens[i].width),
			Height:    float64(screens[i].height),
			IsPrimary: screens[i].isPrimary != 0,
			Index:     int(screens[i].index),
		}
	}

	return result
}
