package client_test

import (
	"errors"
	"testing"
	"time"

	"example.com/rtc-timekeeper/base/epoch"
	"example.com/rtc-timekeeper/core/client"
	"example.com/rtc-timekeeper/net/ntp"
)

type fakeReply struct {
	err     error
	mangle  func(*ntp.Packet)
	t3, t4  ntp.Time64
	txTicks int64
	rxTicks int64
}

type fakeExchanger struct {
	replies []fakeReply
	hosts   []string
}

func (x *fakeExchanger) Exchange(host string, port int, buf []byte,
	timeout time.Duration) (int64, int64, error) {
	if len(x.replies) == 0 {
		panic("unexpected exchange")
	}
	r := x.replies[0]
	x.replies = x.replies[1:]
	x.hosts = append(x.hosts, host)
	if r.err != nil {
		return 0, 0, r.err
	}
	pkt := ntp.Packet{Stratum: 2}
	pkt.SetMode(ntp.ModeServer)
	pkt.ReceiveTime = r.t3
	pkt.TransmitTime = r.t4
	if r.mangle != nil {
		r.mangle(&pkt)
	}
	b := buf
	ntp.EncodePacket(&b, &pkt)
	return r.txTicks, r.rxTicks, nil
}

func TestTimeFirstHostWins(t *testing.T) {
	// T3 = T4 = 1000s with 250us fraction, local turnaround 500us.
	// Server processing is zero so delay is 500, correction -250.
	x := &fakeExchanger{replies: []fakeReply{
		{
			t3:      ntp.Time64{Seconds: 1000, Fraction: 1 << 30},
			t4:      ntp.Time64{Seconds: 1000, Fraction: 1 << 30},
			txTicks: 10_000,
			rxTicks: 10_500,
		},
	}}
	c := client.Client{Exchanger: x}
	c.SetHosts([]string{"0.pool.ntp.org", "1.pool.ntp.org"})

	s, err := c.Time(epoch.NTP)
	if err != nil {
		t.Fatalf("Time failed: %v", err)
	}
	want := int64(1000)*1_000_000 + 250_000 - 250
	if s.Time != want {
		t.Errorf("corrected time: got %d, want %d", s.Time, want)
	}
	if s.Ticks != 10_500 {
		t.Errorf("sample ticks: got %d, want 10500", s.Ticks)
	}
	if len(x.hosts) != 1 || x.hosts[0] != "0.pool.ntp.org" {
		t.Errorf("queried hosts: got %v, want only the first", x.hosts)
	}
}

func TestTimeEpochConversion(t *testing.T) {
	x := &fakeExchanger{replies: []fakeReply{
		{
			t3: ntp.Time64{Seconds: 3_000_000_000},
			t4: ntp.Time64{Seconds: 3_000_000_000},
		},
	}}
	c := client.Client{Exchanger: x}
	c.SetHosts([]string{"time.example.com"})

	s, err := c.Time(epoch.Unix)
	if err != nil {
		t.Fatalf("Time failed: %v", err)
	}
	want := (int64(3_000_000_000) - 2_208_988_800) * 1_000_000
	if s.Time != want {
		t.Errorf("unix-epoch time: got %d, want %d", s.Time, want)
	}
}

func TestTimeFallsBackOnInvalidResponse(t *testing.T) {
	good := fakeReply{
		t3:      ntp.Time64{Seconds: 500},
		t4:      ntp.Time64{Seconds: 500},
		txTicks: 0,
		rxTicks: 0,
	}
	cases := []struct {
		name string
		bad  fakeReply
	}{
		{"network error", fakeReply{err: errors.New("timeout")}},
		{"client mode", fakeReply{
			t3: ntp.Time64{Seconds: 1}, t4: ntp.Time64{Seconds: 1},
			mangle: func(p *ntp.Packet) { p.SetMode(ntp.ModeClient) },
		}},
		{"stratum zero", fakeReply{
			t3: ntp.Time64{Seconds: 1}, t4: ntp.Time64{Seconds: 1},
			mangle: func(p *ntp.Packet) { p.Stratum = 0 },
		}},
		{"zero transmit time", fakeReply{
			t3: ntp.Time64{Seconds: 1}, t4: ntp.Time64{},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x := &fakeExchanger{replies: []fakeReply{tc.bad, good}}
			c := client.Client{Exchanger: x}
			c.SetHosts([]string{"bad.example.com", "good.example.com"})

			s, err := c.Time(epoch.NTP)
			if err != nil {
				t.Fatalf("Time failed: %v", err)
			}
			if s.Time != 500*1_000_000 {
				t.Errorf("time from fallback host: got %d", s.Time)
			}
			if len(x.hosts) != 2 {
				t.Errorf("queried %d hosts, want 2", len(x.hosts))
			}
		})
	}
}

func TestTimeAllHostsFail(t *testing.T) {
	x := &fakeExchanger{replies: []fakeReply{
		{err: errors.New("refused")},
		{err: errors.New("timeout")},
	}}
	c := client.Client{Exchanger: x}
	c.SetHosts([]string{"a.example.com", "b.example.com"})

	_, err := c.Time(epoch.NTP)
	if !errors.Is(err, client.ErrNoServer) {
		t.Errorf("got %v, want ErrNoServer", err)
	}
}

func TestTimeNoHosts(t *testing.T) {
	c := client.Client{Exchanger: &fakeExchanger{}}
	_, err := c.Time(epoch.NTP)
	if !errors.Is(err, client.ErrNoHosts) {
		t.Errorf("got %v, want ErrNoHosts", err)
	}
}

func TestSetHostsDropsInvalid(t *testing.T) {
	c := client.Client{}
	c.SetHosts([]string{
		"0.pool.ntp.org",
		"256.1.1.1",
		"192.168.0.1",
		"com..",
	})
	hosts := c.Hosts()
	want := []string{"0.pool.ntp.org", "192.168.0.1"}
	if len(hosts) != len(want) {
		t.Fatalf("hosts: got %v, want %v", hosts, want)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("hosts[%d]: got %q, want %q", i, hosts[i], want[i])
		}
	}
}

func TestValidHost(t *testing.T) {
	cases := []struct {
		host  string
		valid bool
	}{
		{"0.pool.ntp.org", true},
		{"time.google.com", true},
		{"time.google.com.", true},
		{"192.168.0.1", true},
		{"255.255.255.255", true},
		{"ntp_1.example.org", true},
		{"localhost", true},
		{"256.1.1.1", false},
		{"1.2.3", false},
		{"1.2.3.4.5", false},
		{"example.123", false},
		{"", false},
		{"-bad.example.com", false},
	}
	for _, tc := range cases {
		if got := client.ValidHost(tc.host); got != tc.valid {
			t.Errorf("ValidHost(%q): got %v, want %v", tc.host, got, tc.valid)
		}
	}
}
