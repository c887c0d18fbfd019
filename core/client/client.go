// Package client queries a list of NTP servers in order, validates their
// responses, and produces a round-trip-corrected time sample for the clock
// keeper.
package client

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.uber.org/zap"

	"example.com/rtc-timekeeper/base/epoch"
	"example.com/rtc-timekeeper/base/metrics"
	"example.com/rtc-timekeeper/net/ntp"
	"example.com/rtc-timekeeper/net/udp"
)

const defaultTimeout = 1 * time.Second

var (
	// ErrNoHosts is returned when no valid NTP host has been configured.
	ErrNoHosts = errors.New("no valid NTP hosts configured")
	// ErrNoServer is returned when every configured host was tried and
	// none produced a valid response.
	ErrNoServer = errors.New("no NTP server reachable")
)

// Sample is one network time measurement: Time is the delay-corrected server
// time in microseconds since the requested epoch, Ticks the local monotonic
// microsecond timestamp at the moment the response arrived. The consumer
// compensates the age of the sample by comparing Ticks against the current
// tick count.
type Sample struct {
	Time  int64
	Ticks int64
}

// Exchanger is the transport the client sends its requests through.
type Exchanger interface {
	Exchange(host string, port int, buf []byte, timeout time.Duration) (txTicks, rxTicks int64, err error)
}

type clientMetrics struct {
	reqsSent      prometheus.Counter
	pktsReceived  prometheus.Counter
	respsAccepted prometheus.Counter
	respsRejected prometheus.Counter
	hostsFailed   prometheus.Counter
}

func newClientMetrics() *clientMetrics {
	return &clientMetrics{
		reqsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientReqsSentN,
			Help: metrics.ClientReqsSentH,
		}),
		pktsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientPktsReceivedN,
			Help: metrics.ClientPktsReceivedH,
		}),
		respsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientRespsAcceptedN,
			Help: metrics.ClientRespsAcceptedH,
		}),
		respsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientRespsRejectedN,
			Help: metrics.ClientRespsRejectedH,
		}),
		hostsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientHostsFailedN,
			Help: metrics.ClientHostsFailedH,
		}),
	}
}

var mtrcs atomic.Pointer[clientMetrics]

func init() {
	mtrcs.Store(newClientMetrics())
}

// Client iterates its host list in order and returns the first valid
// response. All fields are optional: a nil Log disables logging, a nil
// Exchanger selects the UDP transport, a zero Timeout selects one second.
type Client struct {
	Log       *zap.Logger
	Exchanger Exchanger
	Timeout   time.Duration
	Histo     *hdrhistogram.Histogram // optional round-trip-delay record, in us

	hosts []string
}

func (c *Client) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// SetHosts replaces the host list, keeping entries in order and dropping
// any that fail validation. Rejected entries are logged, not errors; an
// empty result surfaces later as ErrNoHosts.
func (c *Client) SetHosts(hosts []string) {
	c.hosts = c.hosts[:0]
	for _, h := range hosts {
		if !ValidHost(h) {
			c.log().Info("dropping invalid NTP host", zap.String("host", h))
			continue
		}
		c.hosts = append(c.hosts, h)
	}
}

// Hosts returns a copy of the configured host list.
func (c *Client) Hosts() []string {
	hosts := make([]string, len(c.hosts))
	copy(hosts, c.hosts)
	return hosts
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c *Client) exchanger() Exchanger {
	if c.Exchanger == nil {
		return &udp.Transport{}
	}
	return c.Exchanger
}

// Time queries the configured hosts in order and returns a sample from the
// first one that produces a valid response. Per-host failures, timeouts and
// implausible responses are logged and skipped; only an exhausted host list
// is an error.
func (c *Client) Time(e epoch.Epoch) (Sample, error) {
	if len(c.hosts) == 0 {
		return Sample{}, ErrNoHosts
	}
	delta, err := epoch.Delta(epoch.NTP, e)
	if err != nil {
		return Sample{}, err
	}

	log := c.log()
	m := mtrcs.Load()
	buf := make([]byte, ntp.PacketLen)

	for _, host := range c.hosts {
		ntp.EncodeRequest(&buf)

		m.reqsSent.Inc()
		txTicks, rxTicks, err := c.exchanger().Exchange(host, ntp.ServerPort, buf, c.timeout())
		if err != nil {
			m.hostsFailed.Inc()
			log.Info("NTP network error", zap.String("host", host), zap.Error(err))
			continue
		}
		m.pktsReceived.Inc()

		var resp ntp.Packet
		err = ntp.DecodePacket(&resp, buf)
		if err == nil {
			err = ntp.ValidateResponse(&resp)
		}
		if err != nil {
			m.respsRejected.Inc()
			log.Info("invalid NTP response", zap.String("host", host), zap.Error(err))
			continue
		}

		// T3/T4 are the server's receive and transmit times. The round
		// trip spent on the network is the local turnaround minus the
		// server's processing time; half of it adjusts T4 forward to
		// the moment the response arrived.
		t3 := resp.ReceiveTime.Micros()
		t4 := resp.TransmitTime.Micros()
		delay := (rxTicks - txTicks) - (t4 - t3)
		corrected := t4 - delay/2 + delta*1_000_000

		if c.Histo != nil {
			_ = c.Histo.RecordValue(rxTicks - txTicks)
		}
		m.respsAccepted.Inc()
		log.Debug("accepted NTP response",
			zap.String("host", host),
			zap.Uint8("stratum", resp.Stratum),
			zap.Int64("network delay us", delay),
		)
		return Sample{Time: corrected, Ticks: rxTicks}, nil
	}

	return Sample{}, ErrNoServer
}
