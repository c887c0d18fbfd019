//go:build !linux

package main

import (
	"errors"

	"example.com/rtc-timekeeper/base/timebase"
)

func openRTCDevice(path string) (timebase.Device, error) {
	return nil, errors.New("RTC character devices are only supported on linux")
}
