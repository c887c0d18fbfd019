package epoch_test

import (
	"testing"

	"example.com/rtc-timekeeper/base/epoch"
)

func TestDeltaDiagonal(t *testing.T) {
	for _, e := range []epoch.Epoch{epoch.NTP, epoch.Unix, epoch.Y2K} {
		d, err := epoch.Delta(e, e)
		if err != nil {
			t.Fatalf("Delta(%v, %v) failed: %v", e, e, err)
		}
		if d != 0 {
			t.Errorf("Delta(%v, %v) = %d, want 0", e, e, d)
		}
	}
}

func TestDeltaAntisymmetry(t *testing.T) {
	es := []epoch.Epoch{epoch.NTP, epoch.Unix, epoch.Y2K}
	for _, a := range es {
		for _, b := range es {
			ab, err := epoch.Delta(a, b)
			if err != nil {
				t.Fatalf("Delta(%v, %v) failed: %v", a, b, err)
			}
			ba, err := epoch.Delta(b, a)
			if err != nil {
				t.Fatalf("Delta(%v, %v) failed: %v", b, a, err)
			}
			if ab != -ba {
				t.Errorf("Delta(%v, %v) = %d, Delta(%v, %v) = %d, want negations", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestDeltaConstants(t *testing.T) {
	d, _ := epoch.Delta(epoch.NTP, epoch.Unix)
	if d != -2208988800 {
		t.Errorf("Delta(NTP, Unix) = %d, want -2208988800", d)
	}
	d, _ = epoch.Delta(epoch.NTP, epoch.Y2K)
	if d != -3155673600 {
		t.Errorf("Delta(NTP, Y2K) = %d, want -3155673600", d)
	}
	d, _ = epoch.Delta(epoch.Unix, epoch.Y2K)
	if d != -946684800 {
		t.Errorf("Delta(Unix, Y2K) = %d, want -946684800", d)
	}
}

func TestDeltaInvalid(t *testing.T) {
	if _, err := epoch.Delta(epoch.Epoch(3), epoch.Unix); err == nil {
		t.Errorf("epoch 3 must be rejected")
	}
	if _, err := epoch.Delta(epoch.Unix, epoch.Default); err == nil {
		t.Errorf("the default sentinel must be resolved before the lookup")
	}
}

func TestFromYear(t *testing.T) {
	cases := []struct {
		year int
		want epoch.Epoch
	}{
		{1900, epoch.NTP},
		{1970, epoch.Unix},
		{2000, epoch.Y2K},
	}
	for _, c := range cases {
		got, err := epoch.FromYear(c.year)
		if err != nil {
			t.Fatalf("FromYear(%d) failed: %v", c.year, err)
		}
		if got != c.want {
			t.Errorf("FromYear(%d) = %v, want %v", c.year, got, c.want)
		}
		if got.Year() != c.year {
			t.Errorf("Year() = %d, want %d", got.Year(), c.year)
		}
	}
	if _, err := epoch.FromYear(1980); err == nil {
		t.Errorf("year 1980 must be rejected")
	}
}
