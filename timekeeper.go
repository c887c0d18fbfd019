// Command timekeeper keeps a real-time clock accurate: it reads the clock
// with timezone and DST applied, synchronizes it from NTP servers, and
// measures and compensates the clock's oscillator drift between syncs.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/rtc-timekeeper/base/calendar"
	"example.com/rtc-timekeeper/base/epoch"
	"example.com/rtc-timekeeper/base/timebase"
	"example.com/rtc-timekeeper/benchmark"
	"example.com/rtc-timekeeper/core/clock"
	"example.com/rtc-timekeeper/core/dst"
	"example.com/rtc-timekeeper/driver/rtc"
)

type dstSwitchConfig struct {
	Month   int `toml:"month"`
	Week    int `toml:"week"`
	Weekday int `toml:"weekday"`
	Hour    int `toml:"hour"`
}

type svcConfig struct {
	NTPServers          []string         `toml:"ntp_servers,omitempty"`
	NTPTimeoutMs        int              `toml:"ntp_timeout_ms,omitempty"`
	TimezoneHour        int              `toml:"timezone_hour,omitempty"`
	TimezoneMinute      int              `toml:"timezone_minute,omitempty"`
	DSTStart            *dstSwitchConfig `toml:"dst_start,omitempty"`
	DSTEnd              *dstSwitchConfig `toml:"dst_end,omitempty"`
	DSTBiasMinutes      int              `toml:"dst_bias_minutes,omitempty"`
	EpochYear           int              `toml:"epoch_year,omitempty"`
	RTCDevice           string           `toml:"rtc_device,omitempty"`
	DriftPPM            float64          `toml:"drift_ppm,omitempty"`
	MetricsAddr         string           `toml:"metrics_address,omitempty"`
	SyncIntervalS       int              `toml:"sync_interval_s,omitempty"`
	CompensateIntervalS int              `toml:"compensate_interval_s,omitempty"`
}

var (
	log *zap.Logger
)

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
}

func loadConfig(configFile string) svcConfig {
	var cfg svcConfig
	if configFile == "" {
		return cfg
	}
	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	err = toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		log.Fatal("failed to decode configuration", zap.Error(err))
	}
	return cfg
}

func createKeeper(cfg svcConfig) *clock.Keeper {
	var dev timebase.Device = &rtc.SystemRTC{Log: log}
	if cfg.RTCDevice != "" {
		d, err := openRTCDevice(cfg.RTCDevice)
		if err != nil {
			log.Fatal("failed to open RTC device", zap.Error(err))
		}
		dev = d
	}

	k := clock.NewKeeper(dev)
	k.SetLogger(log)
	k.SetHosts(cfg.NTPServers)
	if cfg.NTPTimeoutMs != 0 {
		err := k.SetNTPTimeout(time.Duration(cfg.NTPTimeoutMs) * time.Millisecond)
		if err != nil {
			log.Fatal("invalid NTP timeout", zap.Error(err))
		}
	}
	err := k.SetTimezone(cfg.TimezoneHour, cfg.TimezoneMinute)
	if err != nil {
		log.Fatal("invalid timezone", zap.Error(err))
	}
	if cfg.DSTStart != nil && cfg.DSTEnd != nil {
		err = k.SetDST(
			dst.Switch{
				Month:   cfg.DSTStart.Month,
				Week:    cfg.DSTStart.Week,
				Weekday: calendar.Weekday(cfg.DSTStart.Weekday),
				Hour:    cfg.DSTStart.Hour,
			},
			dst.Switch{
				Month:   cfg.DSTEnd.Month,
				Week:    cfg.DSTEnd.Week,
				Weekday: calendar.Weekday(cfg.DSTEnd.Weekday),
				Hour:    cfg.DSTEnd.Hour,
			},
			cfg.DSTBiasMinutes)
		if err != nil {
			log.Fatal("invalid DST rule", zap.Error(err))
		}
	}
	if cfg.EpochYear != 0 {
		e, err := epoch.FromYear(cfg.EpochYear)
		if err != nil {
			log.Fatal("invalid epoch", zap.Error(err))
		}
		if err := k.SetEpoch(e); err != nil {
			log.Fatal("invalid epoch", zap.Error(err))
		}
	}
	if cfg.DriftPPM != 0 {
		k.SetDriftPPM(cfg.DriftPPM)
	}
	return k
}

func runTime(k *clock.Keeper, utc bool) {
	dt, err := k.Time(utc)
	if err != nil {
		log.Fatal("failed to read clock", zap.Error(err))
	}
	us, err := k.TimeUS(epoch.Default, utc)
	if err != nil {
		log.Fatal("failed to read clock", zap.Error(err))
	}
	fmt.Printf("%04d-%02d-%02d %02d:%02d:%02d.%06d (%d us)\n",
		dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, dt.Subsecond, us)
}

func runSync(k *clock.Keeper) {
	err := k.Sync(nil)
	if err != nil {
		log.Fatal("failed to synchronize RTC", zap.Error(err))
	}
	last, err := k.LastSync(epoch.Default, false)
	if err != nil {
		log.Fatal("failed to read last sync", zap.Error(err))
	}
	fmt.Printf("synchronized, last sync at %d us\n", last)
}

func runDrift(k *clock.Keeper) {
	ppm, us, err := k.DriftCalculate(nil)
	if err != nil {
		log.Fatal("failed to calculate drift", zap.Error(err))
	}
	if ppm == 0 && us == 0 {
		fmt.Println("no drift measured yet, synchronize first")
		return
	}
	fmt.Printf("drift: %+.3f ppm, %+d us\n", ppm, us)
}

func runCompensate(k *clock.Keeper, offsetUS int64) {
	if offsetUS == 0 {
		drift, err := k.DriftUS()
		if err != nil {
			log.Fatal("failed to project drift", zap.Error(err))
		}
		offsetUS = -drift
	}
	if offsetUS == 0 {
		fmt.Println("nothing to compensate")
		return
	}
	err := k.DriftCompensate(offsetUS)
	if err != nil {
		log.Fatal("failed to compensate drift", zap.Error(err))
	}
	fmt.Printf("compensated by %+d us\n", offsetUS)
}

func runMonitor(k *clock.Keeper, cfg svcConfig) {
	syncInterval := 1 * time.Hour
	if cfg.SyncIntervalS != 0 {
		syncInterval = time.Duration(cfg.SyncIntervalS) * time.Second
	}
	compInterval := 5 * time.Minute
	if cfg.CompensateIntervalS != 0 {
		compInterval = time.Duration(cfg.CompensateIntervalS) * time.Second
	}
	metricsAddr := "127.0.0.1:8080"
	if cfg.MetricsAddr != "" {
		metricsAddr = cfg.MetricsAddr
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		err := http.ListenAndServe(metricsAddr, nil)
		log.Fatal("failed to serve metrics", zap.Error(err))
	}()

	sync := func() {
		if err := k.Sync(nil); err != nil {
			log.Error("synchronization failed, running on drift compensation",
				zap.Error(err))
			return
		}
		if _, _, err := k.DriftCalculate(nil); err != nil {
			log.Error("drift calculation failed", zap.Error(err))
		}
	}

	sync()
	syncTicker := time.NewTicker(syncInterval)
	compTicker := time.NewTicker(compInterval)
	for {
		select {
		case <-syncTicker.C:
			sync()
		case <-compTicker.C:
			drift, err := k.DriftUS()
			if err != nil {
				log.Error("drift projection failed", zap.Error(err))
				continue
			}
			if drift == 0 {
				continue
			}
			if err := k.DriftCompensate(-drift); err != nil {
				log.Error("drift compensation failed", zap.Error(err))
			}
		}
	}
}

func exitWithUsage() {
	fmt.Println("usage: timekeeper <command> [flags]")
	fmt.Println("commands: time, sync, drift, compensate, monitor, benchmark")
	os.Exit(1)
}

func main() {
	var (
		verbose       bool
		configFile    string
		utc           bool
		offsetUS      int64
		benchHost     string
		benchRequests int
		benchTimeout  int
		enableProfile bool
	)

	timeFlags := flag.NewFlagSet("time", flag.ExitOnError)
	syncFlags := flag.NewFlagSet("sync", flag.ExitOnError)
	driftFlags := flag.NewFlagSet("drift", flag.ExitOnError)
	compensateFlags := flag.NewFlagSet("compensate", flag.ExitOnError)
	monitorFlags := flag.NewFlagSet("monitor", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	timeFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	timeFlags.StringVar(&configFile, "config", "", "Config file")
	timeFlags.BoolVar(&utc, "utc", false, "Report UTC instead of local time")

	syncFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	syncFlags.StringVar(&configFile, "config", "", "Config file")

	driftFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	driftFlags.StringVar(&configFile, "config", "", "Config file")

	compensateFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	compensateFlags.StringVar(&configFile, "config", "", "Config file")
	compensateFlags.Int64Var(&offsetUS, "offset", 0,
		"Offset to apply in microseconds; 0 projects from the stored drift rate")

	monitorFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	monitorFlags.StringVar(&configFile, "config", "", "Config file")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.StringVar(&benchHost, "host", "", "NTP server to query")
	benchmarkFlags.IntVar(&benchRequests, "requests", 10_000, "Number of requests")
	benchmarkFlags.IntVar(&benchTimeout, "timeout", 1000, "Per-request timeout in milliseconds")
	benchmarkFlags.BoolVar(&enableProfile, "profile", false, "Write a CPU profile")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case timeFlags.Name():
		err := timeFlags.Parse(os.Args[2:])
		if err != nil || timeFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runTime(createKeeper(loadConfig(configFile)), utc)
	case syncFlags.Name():
		err := syncFlags.Parse(os.Args[2:])
		if err != nil || syncFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runSync(createKeeper(loadConfig(configFile)))
	case driftFlags.Name():
		err := driftFlags.Parse(os.Args[2:])
		if err != nil || driftFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runDrift(createKeeper(loadConfig(configFile)))
	case compensateFlags.Name():
		err := compensateFlags.Parse(os.Args[2:])
		if err != nil || compensateFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runCompensate(createKeeper(loadConfig(configFile)), offsetUS)
	case monitorFlags.Name():
		err := monitorFlags.Parse(os.Args[2:])
		if err != nil || monitorFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		cfg := loadConfig(configFile)
		runMonitor(createKeeper(cfg), cfg)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 || benchHost == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		benchmark.Run(benchHost, benchRequests,
			time.Duration(benchTimeout)*time.Millisecond, enableProfile)
	default:
		exitWithUsage()
	}
}
