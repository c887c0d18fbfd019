//go:build linux

package main

import (
	"example.com/rtc-timekeeper/base/timebase"
	"example.com/rtc-timekeeper/driver/rtc"
)

func openRTCDevice(path string) (timebase.Device, error) {
	d, err := rtc.OpenCharDevice(path)
	if err != nil {
		return nil, err
	}
	return &rtc.Adapter{Raw: d}, nil
}
