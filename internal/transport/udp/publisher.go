// SPDX-License-Identifier: MIT
package udp

import (
	"datawave/internal/log"
	"errors"
	"sync"
	"time"
)

// DefaultInterval is used when the publisher is given a non-positive interval.
const DefaultInterval = 16 * time.Millisecond

// MagnitudeSource provides the latest magnitude spectrum.
type MagnitudeSource interface {
	GetMagnitudesInto(dst []float64) error
	GetFFTSize() int
}

// Sender abstracts the datagram writer so tests can capture packets.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// UDPPublisher periodically packs the latest magnitudes and sends them.
type UDPPublisher struct {
	sender   Sender
	source   MagnitudeSource
	interval time.Duration
	onError  func(error)

	mu      sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
	running bool

	seq    uint32
	mags   []float64
	packet []byte
}

// NewUDPPublisher creates a publisher. onError, when non-nil, is called for
// every failed send.
func NewUDPPublisher(interval time.Duration, sender Sender, source MagnitudeSource, onError func(error)) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("udp: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("udp: magnitude source cannot be nil")
	}
	if interval <= 0 {
		log.Warnf("UDP: invalid interval %s, using %s", interval, DefaultInterval)
		interval = DefaultInterval
	}
	bins := min(source.GetFFTSize()/2+1, MaxMagnitudes)
	log.Infof("UDP: publisher interval %s, %d bins", interval, bins)

	return &UDPPublisher{
		sender:   sender,
		source:   source,
		interval: interval,
		onError:  onError,
		mags:     make([]float64, source.GetFFTSize()/2+1),
		packet:   make([]byte, 0, HeaderSize+4*bins),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.done = make(chan struct{})

	done := p.done
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop halts the goroutine and waits for it to exit.
func (p *UDPPublisher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

// Close stops the publisher and closes the sender.
func (p *UDPPublisher) Close() error {
	p.Stop()
	return p.sender.Close()
}

// publish sends one packet. It runs only on the publisher goroutine.
func (p *UDPPublisher) publish() {
	if err := p.source.GetMagnitudesInto(p.mags); err != nil {
		log.Errorf("UDP: reading magnitudes: %v", err)
		return
	}
	p.seq++
	p.packet = AppendPacket(p.packet[:0], p.seq, time.Now().UnixNano(), p.mags)
	if err := p.sender.Send(p.packet); err != nil {
		if p.onError != nil {
			p.onError(err)
		}
		log.Debugf("UDP: packet %d: %v", p.seq, err)
	}
}
