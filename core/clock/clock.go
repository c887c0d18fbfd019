// Package clock implements the clock keeper: it owns the RTC device, the
// timezone and DST configuration, and the drift model, and exposes the time
// read, synchronize, and drift calculate/compensate operations.
package clock

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.uber.org/zap"

	"example.com/rtc-timekeeper/base/epoch"
	"example.com/rtc-timekeeper/base/metrics"
	"example.com/rtc-timekeeper/base/timebase"
	"example.com/rtc-timekeeper/core/client"
	"example.com/rtc-timekeeper/core/dst"
	"example.com/rtc-timekeeper/net/udp"
)

var (
	errTimezone      = errors.New("timezone offset does not match a real-world zone")
	errTimeout       = errors.New("NTP timeout must be positive")
	errBeforeEpoch   = errors.New("time lies before the reference epoch")
	errDriftInterval = errors.New("no time elapsed since the last synchronization")
)

type keeperMetrics struct {
	syncLastCorr     prometheus.Gauge
	syncTotal        prometheus.Counter
	driftPPM         prometheus.Gauge
	driftCompensated prometheus.Counter
}

func newKeeperMetrics() *keeperMetrics {
	return &keeperMetrics{
		syncLastCorr: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.SyncLastCorrN,
			Help: metrics.SyncLastCorrH,
		}),
		syncTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncTotalN,
			Help: metrics.SyncTotalH,
		}),
		driftPPM: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.DriftPPMN,
			Help: metrics.DriftPPMH,
		}),
		driftCompensated: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.DriftCompensatedN,
			Help: metrics.DriftCompensatedH,
		}),
	}
}

var mtrcs atomic.Pointer[keeperMetrics]

func init() {
	mtrcs.Store(newKeeperMetrics())
}

// Keeper is the single owner of a device's time state. It reads and writes
// the RTC through a timebase.Device, queries network time through an NTP
// client, and keeps the drift model in between. A Keeper is not safe for
// concurrent use.
type Keeper struct {
	log  *zap.Logger
	dev  timebase.Device
	ntpc *client.Client

	// ticks is the process-monotonic microsecond clock samples are aged
	// against.
	ticks func() int64

	tzHour   int
	tzMinute int
	timezone int // seconds
	dst      dst.Resolver

	dstStart *dst.Switch
	dstEnd   *dst.Switch
	dstBias  int // minutes

	// userEpoch is the origin reported to callers who pass epoch.Default.
	// It starts as epoch.Default itself, meaning "same as the device".
	userEpoch epoch.Epoch

	devEpoch    epoch.Epoch
	devEpochSet bool

	// device-epoch microseconds; 0 means the operation never ran.
	lastSync       int64
	lastCompensate int64
	lastCalculate  int64

	ppm float64
}

// NewKeeper returns a keeper bound to the given RTC device, with no hosts,
// timezone 0, DST disabled, and logging off.
func NewKeeper(dev timebase.Device) *Keeper {
	return &Keeper{
		log:       zap.NewNop(),
		dev:       dev,
		ntpc:      &client.Client{},
		ticks:     udp.TicksUS,
		userEpoch: epoch.Default,
	}
}

// SetLogger replaces the keeper's and the NTP client's logger; nil disables
// logging.
func (k *Keeper) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	k.log = log
	k.ntpc.Log = log
}

// SetHosts replaces the NTP host list, dropping and logging invalid entries.
func (k *Keeper) SetHosts(hosts []string) {
	k.ntpc.SetHosts(hosts)
}

func (k *Keeper) Hosts() []string {
	return k.ntpc.Hosts()
}

// SetNTPTimeout bounds each per-host network exchange.
func (k *Keeper) SetNTPTimeout(d time.Duration) error {
	if d <= 0 {
		return errTimeout
	}
	k.ntpc.Timeout = d
	return nil
}

func (k *Keeper) NTPTimeout() time.Duration {
	return k.ntpc.Timeout
}

// Real-world UTC offsets are not arbitrary: zones on a half hour or three
// quarters of an hour exist only at specific hours.
var (
	halfHourZones    = []int{-9, -3, 3, 4, 5, 6, 9, 10}
	threeQuarterHour = []int{5, 8, 12}
)

// SetTimezone configures the fixed UTC offset, validated against the set of
// real-world timezones: whole hours from -12 to +14, a fixed list of
// half-hour zones, and 5:45, 8:45 and 12:45.
func (k *Keeper) SetTimezone(hour, minute int) error {
	switch minute {
	case 0:
		if hour < -12 || hour > 14 {
			return fmt.Errorf("%w: %+d:00", errTimezone, hour)
		}
	case 30:
		if !containsInt(halfHourZones, hour) {
			return fmt.Errorf("%w: %+d:30", errTimezone, hour)
		}
	case 45:
		if !containsInt(threeQuarterHour, hour) {
			return fmt.Errorf("%w: %+d:45", errTimezone, hour)
		}
	default:
		return fmt.Errorf("%w: minute must be 0, 30 or 45", errTimezone)
	}
	k.tzHour = hour
	k.tzMinute = minute
	k.timezone = hour*3600 + minute*60
	return nil
}

// Timezone returns the configured offset as (hour, minute).
func (k *Keeper) Timezone() (hour, minute int) {
	return k.tzHour, k.tzMinute
}

func containsInt(s []int, v int) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// SetDST configures the full DST rule in one call. A bias of 0 disables DST.
func (k *Keeper) SetDST(start, end dst.Switch, biasMinutes int) error {
	if err := k.dst.SetRule(start, end, biasMinutes); err != nil {
		return err
	}
	if biasMinutes == 0 {
		k.dstStart, k.dstEnd, k.dstBias = nil, nil, 0
	} else {
		k.dstStart, k.dstEnd, k.dstBias = &start, &end, biasMinutes
	}
	return nil
}

// SetDSTStart sets the start switch alone. The rule takes effect once start,
// end and a non-zero bias are all configured; a half-defined rule resolves
// to bias 0.
func (k *Keeper) SetDSTStart(s dst.Switch) error {
	if err := dst.ValidateSwitch(s); err != nil {
		return fmt.Errorf("invalid DST start: %w", err)
	}
	k.dstStart = &s
	return k.applyDST()
}

// SetDSTEnd sets the end switch alone.
func (k *Keeper) SetDSTEnd(s dst.Switch) error {
	if err := dst.ValidateSwitch(s); err != nil {
		return fmt.Errorf("invalid DST end: %w", err)
	}
	k.dstEnd = &s
	return k.applyDST()
}

// SetDSTBias sets the bias alone, in minutes; 0 disables DST and discards
// both switch rules.
func (k *Keeper) SetDSTBias(biasMinutes int) error {
	if biasMinutes == 0 {
		k.dstStart, k.dstEnd, k.dstBias = nil, nil, 0
		k.dst.Disable()
		return nil
	}
	switch biasMinutes {
	case 30, 60, 90, 120:
	default:
		return fmt.Errorf("bias must be one of 30, 60, 90 or 120 minutes: got %d", biasMinutes)
	}
	k.dstBias = biasMinutes
	return k.applyDST()
}

func (k *Keeper) applyDST() error {
	if k.dstStart == nil || k.dstEnd == nil || k.dstBias == 0 {
		k.dst.Disable()
		return nil
	}
	return k.dst.SetRule(*k.dstStart, *k.dstEnd, k.dstBias)
}

// DST returns the active rule; ok is false while DST is disabled or only
// partially configured.
func (k *Keeper) DST() (rule dst.Rule, ok bool) {
	return k.dst.Rule()
}

// SetEpoch selects the epoch reported to callers who do not pick one
// explicitly. epoch.Default restores the device's own epoch.
func (k *Keeper) SetEpoch(e epoch.Epoch) error {
	if e != epoch.Default {
		if _, err := epoch.Delta(e, e); err != nil {
			return err
		}
	}
	k.userEpoch = e
	return nil
}

// Epoch returns the effective user epoch.
func (k *Keeper) Epoch() (epoch.Epoch, error) {
	if k.userEpoch == epoch.Default {
		return k.deviceEpoch()
	}
	return k.userEpoch, nil
}

// SetDriftPPM seeds the drift model from a stored calibration value,
// bypassing a network measurement.
func (k *Keeper) SetDriftPPM(ppm float64) {
	k.ppm = ppm
	mtrcs.Load().driftPPM.Set(ppm)
}

// DriftPPM returns the stored drift estimate; positive means the RTC runs
// fast.
func (k *Keeper) DriftPPM() float64 {
	return k.ppm
}

// deviceEpoch detects the RTC's native epoch once and caches it for the
// keeper's lifetime.
func (k *Keeper) deviceEpoch() (epoch.Epoch, error) {
	if k.devEpochSet {
		return k.devEpoch, nil
	}
	e, err := epoch.FromYear(k.dev.EpochYear())
	if err != nil {
		return 0, err
	}
	k.devEpoch = e
	k.devEpochSet = true
	return e, nil
}

func (k *Keeper) resolveEpoch(e epoch.Epoch) (epoch.Epoch, error) {
	if e == epoch.Default {
		e = k.userEpoch
	}
	if e == epoch.Default {
		return k.deviceEpoch()
	}
	return e, nil
}

// TimeUS returns the current time in microseconds since the given epoch.
// Unless utc is set, the configured timezone and the active DST bias are
// added.
func (k *Keeper) TimeUS(e epoch.Epoch, utc bool) (int64, error) {
	e, err := k.resolveEpoch(e)
	if err != nil {
		return 0, err
	}
	devE, err := k.deviceEpoch()
	if err != nil {
		return 0, err
	}
	dt, err := k.dev.Read()
	if err != nil {
		k.log.Error("RTC read failed", zap.Error(err))
		return 0, err
	}
	secs, err := composeSeconds(dt, devE)
	if err != nil {
		return 0, err
	}
	delta, err := epoch.Delta(devE, e)
	if err != nil {
		return 0, err
	}
	offset := int64(0)
	if !utc {
		bias, err := k.dst.Bias(dt)
		if err != nil {
			return 0, err
		}
		offset = int64(k.timezone + bias)
	}
	return (secs+delta+offset)*1_000_000 + dt.Subsecond, nil
}

// TimeMS is TimeUS truncated to milliseconds.
func (k *Keeper) TimeMS(e epoch.Epoch, utc bool) (int64, error) {
	us, err := k.TimeUS(e, utc)
	return us / 1000, err
}

// TimeS is TimeUS truncated to whole seconds.
func (k *Keeper) TimeS(e epoch.Epoch, utc bool) (int64, error) {
	us, err := k.TimeUS(e, utc)
	return us / 1_000_000, err
}

// Time returns the current time as a full calendar breakdown. Unless utc is
// set, the timezone and DST bias are applied before the breakdown.
func (k *Keeper) Time(utc bool) (timebase.DateTime, error) {
	devE, err := k.deviceEpoch()
	if err != nil {
		return timebase.DateTime{}, err
	}
	dt, err := k.dev.Read()
	if err != nil {
		k.log.Error("RTC read failed", zap.Error(err))
		return timebase.DateTime{}, err
	}
	if utc {
		return dt, nil
	}
	secs, err := composeSeconds(dt, devE)
	if err != nil {
		return timebase.DateTime{}, err
	}
	bias, err := k.dst.Bias(dt)
	if err != nil {
		return timebase.DateTime{}, err
	}
	out, err := breakSeconds(secs+int64(k.timezone+bias), devE)
	if err != nil {
		return timebase.DateTime{}, err
	}
	out.Subsecond = dt.Subsecond
	return out, nil
}

// deviceNowUS reads the RTC as UTC microseconds in the device epoch.
func (k *Keeper) deviceNowUS() (int64, error) {
	devE, err := k.deviceEpoch()
	if err != nil {
		return 0, err
	}
	dt, err := k.dev.Read()
	if err != nil {
		k.log.Error("RTC read failed", zap.Error(err))
		return 0, err
	}
	secs, err := composeSeconds(dt, devE)
	if err != nil {
		return 0, err
	}
	return secs*1_000_000 + dt.Subsecond, nil
}

// writeDeviceUS writes UTC device-epoch microseconds to the RTC as a
// calendar breakdown.
func (k *Keeper) writeDeviceUS(us int64) error {
	devE, err := k.deviceEpoch()
	if err != nil {
		return err
	}
	dt, err := breakSeconds(us/1_000_000, devE)
	if err != nil {
		return err
	}
	dt.Subsecond = us % 1_000_000
	if err := k.dev.Write(dt); err != nil {
		k.log.Error("RTC write failed", zap.Error(err))
		return err
	}
	return nil
}

// sample returns the given sample or fetches one from the network, in UTC
// device-epoch microseconds.
func (k *Keeper) sample(s *client.Sample) (client.Sample, error) {
	if s != nil {
		return *s, nil
	}
	devE, err := k.deviceEpoch()
	if err != nil {
		return client.Sample{}, err
	}
	return k.ntpc.Time(devE)
}

// Sync sets the RTC from an external time source. A nil sample queries the
// configured NTP hosts; a caller-supplied sample must carry UTC device-epoch
// microseconds and the tick count of the moment it was taken. The sample is
// aged forward by the ticks elapsed since then before it is written.
func (k *Keeper) Sync(s *client.Sample) error {
	smp, err := k.sample(s)
	if err != nil {
		return err
	}
	adjusted := smp.Time + (k.ticks() - smp.Ticks)

	before, err := k.deviceNowUS()
	if err != nil {
		return err
	}
	if err := k.writeDeviceUS(adjusted); err != nil {
		return err
	}
	k.lastSync = adjusted

	m := mtrcs.Load()
	m.syncTotal.Inc()
	m.syncLastCorr.Set(float64(adjusted - before))
	k.log.Info("RTC synchronized",
		zap.Int64("correction us", adjusted-before),
	)
	return nil
}

// driftAnchor is the reference the drift model measures elapsed time from:
// the later of the last sync and the last compensation.
func (k *Keeper) driftAnchor() int64 {
	if k.lastCompensate > k.lastSync {
		return k.lastCompensate
	}
	return k.lastSync
}

// DriftCalculate measures the RTC's drift rate against a fresh external
// sample without touching the RTC. It returns the rate in ppm (positive
// when the RTC runs fast) and the absolute drift in microseconds, and
// stores the rate for later projection. Before any sync or compensation it
// returns (0, 0) with no error.
func (k *Keeper) DriftCalculate(s *client.Sample) (ppm float64, us int64, err error) {
	anchor := k.driftAnchor()
	if anchor == 0 {
		return 0, 0, nil
	}
	smp, err := k.sample(s)
	if err != nil {
		return 0, 0, err
	}
	fresh := smp.Time + (k.ticks() - smp.Ticks)
	rtcNow, err := k.deviceNowUS()
	if err != nil {
		return 0, 0, err
	}

	syncDelta := fresh - anchor
	if syncDelta == 0 {
		return 0, 0, errDriftInterval
	}
	rtcDelta := rtcNow - fresh

	ppm = float64(rtcDelta) / float64(syncDelta) * 1_000_000
	k.ppm = ppm
	k.lastCalculate = fresh
	mtrcs.Load().driftPPM.Set(ppm)
	k.log.Info("drift calculated",
		zap.Float64("ppm", ppm),
		zap.Int64("drift us", rtcDelta),
	)
	return ppm, rtcDelta, nil
}

// DriftUS projects the accumulated drift since the last sync or compensation
// using the stored ppm. It is 0 while never synchronized or never measured.
func (k *Keeper) DriftUS() (int64, error) {
	return k.DriftUSAt(k.ppm)
}

// DriftUSAt projects the accumulated drift using a caller-supplied rate
// instead of the stored one.
func (k *Keeper) DriftUSAt(ppm float64) (int64, error) {
	anchor := k.driftAnchor()
	if anchor == 0 {
		return 0, nil
	}
	rtcNow, err := k.deviceNowUS()
	if err != nil {
		return 0, err
	}
	elapsed := rtcNow - anchor
	trueElapsed := int64(float64(elapsed) * 1_000_000 / (1_000_000 + ppm))
	return elapsed - trueElapsed, nil
}

// DriftCompensate nudges the RTC by offsetUS (signed, subtracted drift is a
// negative offset) and records the result as the new drift anchor. This is
// the offline counterpart of Sync.
func (k *Keeper) DriftCompensate(offsetUS int64) error {
	now, err := k.deviceNowUS()
	if err != nil {
		return err
	}
	adjusted := now + offsetUS
	if err := k.writeDeviceUS(adjusted); err != nil {
		return err
	}
	k.lastCompensate = adjusted
	mtrcs.Load().driftCompensated.Add(math.Abs(float64(offsetUS)))
	k.log.Info("drift compensated", zap.Int64("offset us", offsetUS))
	return nil
}

// LastSync returns the timestamp of the last synchronization in the given
// epoch, with timezone and DST applied unless utc is set; 0 when never
// synchronized.
func (k *Keeper) LastSync(e epoch.Epoch, utc bool) (int64, error) {
	return k.rebase(k.lastSync, e, utc)
}

// LastDriftCompensate returns the timestamp of the last compensation; 0 when
// never compensated.
func (k *Keeper) LastDriftCompensate(e epoch.Epoch, utc bool) (int64, error) {
	return k.rebase(k.lastCompensate, e, utc)
}

// LastDriftCalculate returns the timestamp of the last drift measurement; 0
// when never measured.
func (k *Keeper) LastDriftCalculate(e epoch.Epoch, utc bool) (int64, error) {
	return k.rebase(k.lastCalculate, e, utc)
}

// rebase converts a stored UTC device-epoch timestamp to a caller epoch,
// optionally applying timezone and DST as of that timestamp's own date.
func (k *Keeper) rebase(us int64, e epoch.Epoch, utc bool) (int64, error) {
	if us == 0 {
		return 0, nil
	}
	e, err := k.resolveEpoch(e)
	if err != nil {
		return 0, err
	}
	devE, err := k.deviceEpoch()
	if err != nil {
		return 0, err
	}
	delta, err := epoch.Delta(devE, e)
	if err != nil {
		return 0, err
	}
	offset := int64(0)
	if !utc {
		dt, err := breakSeconds(us/1_000_000, devE)
		if err != nil {
			return 0, err
		}
		bias, err := k.dst.Bias(dt)
		if err != nil {
			return 0, err
		}
		offset = int64(k.timezone + bias)
	}
	return us + (delta+offset)*1_000_000, nil
}
