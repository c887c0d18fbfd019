// Package benchmark measures the round-trip delay distribution of repeated
// queries against a single NTP server.
package benchmark

import (
	"log"
	"os"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/mmcloughlin/profile"

	"example.com/rtc-timekeeper/net/ntp"
	"example.com/rtc-timekeeper/net/udp"
)

// Run sends numRequests queries to host, one at a time, validating each
// reply and recording the round-trip delay in microseconds. Percentiles are
// printed to stdout. With profiling enabled a CPU profile of the run is
// written to the working directory.
func Run(host string, numRequests int, timeout time.Duration, enableProfile bool) {
	if enableProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	hg := hdrhistogram.New(1, 50_000_000, 5)
	t := &udp.Transport{}
	buf := make([]byte, ntp.PacketLen)
	failures := 0

	t0 := time.Now()
	for i := numRequests; i > 0; i-- {
		ntp.EncodeRequest(&buf)

		txTicks, rxTicks, err := t.Exchange(host, ntp.ServerPort, buf, timeout)
		if err != nil {
			log.Printf("Failed to exchange packet: %v", err)
			failures++
			continue
		}

		var resp ntp.Packet
		err = ntp.DecodePacket(&resp, buf)
		if err != nil {
			log.Printf("Failed to decode packet payload: %v", err)
			failures++
			continue
		}
		err = ntp.ValidateResponse(&resp)
		if err != nil {
			log.Printf("Unexpected packet received: %v", err)
			failures++
			continue
		}

		serverTime := resp.TransmitTime.Micros() - resp.ReceiveTime.Micros()
		roundTripDelay := (rxTicks - txTicks) - serverTime

		err = hg.RecordValue(roundTripDelay)
		if err != nil {
			log.Printf("Failed to record histogram value: %v", err)
			failures++
		}
	}
	log.Print(time.Since(t0))
	if failures != 0 {
		log.Printf("%d of %d requests failed", failures, numRequests)
	}
	hg.PercentilesPrint(os.Stdout, 1, 1.0)
}
