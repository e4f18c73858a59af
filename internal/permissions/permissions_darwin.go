//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import (
	"github.com/rs/zerolog"
)

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() int {
	return int(C.checkMicrophonePermission())
}

// EnsureMicrophone returns ErrMicrophoneDenied unless capture is authorized.
// An undetermined status triggers the system dialog; the user has to start
// again once it is answered.
func EnsureMicrophone(log zerolog.Logger) error {
	switch CheckMicrophone() {
	case PermissionAuthorized:
		return nil
	case PermissionNotDetermined:
		log.Warn().Msg("Microphone permission required, requesting")
		C.requestMicrophonePermission()
	default:
		log.Warn().Msg("Microphone access denied. Enable it in System Settings → Privacy & Security → Microphone")
	}
	return ErrMicrophoneDenied
}

// EnsureAccessibility checks the accessibility grant global hotkeys need,
// prompting when missing.
func EnsureAccessibility(log zerolog.Logger) bool {
	if int(C.checkAccessibilityPermission()) == 1 {
		return true
	}
	log.Warn().Msg("Accessibility permission required for hotkeys. Go to System Settings → Privacy & Security → Accessibility")
	return false
}
