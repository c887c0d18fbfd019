// Package udp provides the blocking request/response transport the NTP
// client runs on, together with the process-monotonic microsecond tick clock
// used to timestamp packet departure and arrival.
package udp

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var errShortWrite = errors.New("failed to write full packet")

// Transport sends one UDP datagram and reads the reply back into the same
// buffer, bounded by a deadline. The zero value is ready to use.
type Transport struct{}

// Exchange resolves host, sends buf to it on port, and overwrites buf with
// the reply. It returns monotonic microsecond ticks taken immediately before
// the send and immediately after the receive.
func (t *Transport) Exchange(host string, port int, buf []byte, timeout time.Duration) (txTicks, rxTicks int64, err error) {
	raddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return 0, 0, fmt.Errorf("resolve %s: %w", host, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return 0, 0, fmt.Errorf("dial %s: %w", host, err)
	}
	defer conn.Close()

	err = conn.SetDeadline(time.Now().Add(timeout))
	if err != nil {
		return 0, 0, err
	}

	txTicks = TicksUS()
	n, err := conn.Write(buf)
	if err != nil {
		return 0, 0, err
	}
	if n != len(buf) {
		return 0, 0, errShortWrite
	}
	_, err = conn.Read(buf)
	if err != nil {
		return 0, 0, err
	}
	rxTicks = TicksUS()

	return txTicks, rxTicks, nil
}
