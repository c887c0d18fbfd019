// Package epoch defines the three timestamp origins the timekeeper works
// with (1900, 1970 and 2000) and the fixed second deltas between them.
package epoch

import (
	"errors"
	"fmt"
)

// Epoch selects a reference origin for returned timestamps.
type Epoch int

const (
	NTP  Epoch = iota // 1900-01-01, the NTP era origin
	Unix              // 1970-01-01
	Y2K               // 2000-01-01
)

// Default stands in for "the caller did not choose an epoch"; operations that
// accept it substitute the configured user epoch.
const Default Epoch = -1

const (
	delta19001970 int64 = 2208988800
	delta19002000 int64 = 3155673600
	delta19702000 int64 = delta19002000 - delta19001970
)

var errInvalidEpoch = errors.New("epoch must be one of epoch.NTP, epoch.Unix, epoch.Y2K")

// Row: from, column: to.
var deltas = [3][3]int64{
	{0, -delta19001970, -delta19002000},
	{delta19001970, 0, -delta19702000},
	{delta19002000, delta19702000, 0},
}

// Delta returns the signed number of seconds to add to a timestamp in order
// to rebase it from one epoch to another.
func Delta(from, to Epoch) (int64, error) {
	if from < NTP || from > Y2K {
		return 0, fmt.Errorf("%w: got %d", errInvalidEpoch, from)
	}
	if to < NTP || to > Y2K {
		return 0, fmt.Errorf("%w: got %d", errInvalidEpoch, to)
	}
	return deltas[from][to], nil
}

// FromYear maps a platform's zero-time calendar year to its epoch. An
// unrecognized year means the platform is unsupported.
func FromYear(year int) (Epoch, error) {
	switch year {
	case 1900:
		return NTP, nil
	case 1970:
		return Unix, nil
	case 2000:
		return Y2K, nil
	}
	return 0, fmt.Errorf("unsupported device epoch year %d", year)
}

// Year returns the calendar year an epoch originates in.
func (e Epoch) Year() int {
	switch e {
	case NTP:
		return 1900
	case Unix:
		return 1970
	case Y2K:
		return 2000
	}
	panic("unexpected epoch value")
}

func (e Epoch) String() string {
	if e == Default {
		return "default"
	}
	return fmt.Sprintf("%d", e.Year())
}
