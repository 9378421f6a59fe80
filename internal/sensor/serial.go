package sensor

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the board's USB CDC console.
const DefaultBaudRate = 115200

// staleAfter bounds how old the last serial sample may be before the
// channel is reported unavailable.
const staleAfter = 2 * time.Second

// SerialSampler reads raw joystick samples from a board streaming its
// diagnostic console ("X: <n>" and "Y: <n>" lines) over a serial port.
type SerialSampler struct {
	mu     sync.RWMutex
	conn   io.ReadCloser
	latest map[Channel]serialSample
	now    func() time.Time
	done   chan struct{}
}

type serialSample struct {
	value uint16
	at    time.Time
}

// NewSerialSampler opens the named port and starts reading samples.
func NewSerialSampler(port string, baud int) (*SerialSampler, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return newSerialSampler(conn, time.Now), nil
}

func newSerialSampler(conn io.ReadCloser, now func() time.Time) *SerialSampler {
	s := &SerialSampler{
		conn:   conn,
		latest: map[Channel]serialSample{},
		now:    now,
		done:   make(chan struct{}),
	}
	go s.readLines()
	return s
}

// Sample returns the most recent value received for ch.
func (s *SerialSampler) Sample(ch Channel) (uint16, error) {
	s.mu.RLock()
	smp, ok := s.latest[ch]
	s.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: no %s sample received yet", ErrUnavailable, ch)
	}
	if age := s.now().Sub(smp.at); age > staleAfter {
		return 0, fmt.Errorf("%w: %s sample is %v old", ErrUnavailable, ch, age.Truncate(time.Millisecond))
	}
	return smp.value, nil
}

// Close closes the port and waits for the reader goroutine to exit.
func (s *SerialSampler) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}

func (s *SerialSampler) readLines() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ch, v, ok := parseLine(line)
		if !ok {
			continue
		}
		s.mu.Lock()
		s.latest[ch] = serialSample{value: v, at: s.now()}
		s.mu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		log.Printf("sensor: serial read stopped: %v", err)
	}
}

// parseLine extracts a raw sample from "X: 1234" (humidity) or "Y: 567"
// (temperature). Other console output is ignored.
func parseLine(line string) (Channel, uint16, bool) {
	key, val, found := strings.Cut(line, ":")
	if !found {
		return 0, 0, false
	}

	var ch Channel
	switch strings.TrimSpace(key) {
	case "X":
		ch = ChannelHumidity
	case "Y":
		ch = ChannelTemperature
	default:
		return 0, 0, false
	}

	n, err := strconv.ParseUint(strings.TrimSpace(val), 10, 16)
	if err != nil || n > MaxSample {
		return 0, 0, false
	}
	return ch, uint16(n), true
}
