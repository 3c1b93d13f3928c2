package lighting

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// SPIConfig describes a WS281x strip wired to an SPI MOSI pin.
type SPIConfig struct {
	Port       string  // SPI port name, "" = first available
	Count      int     // number of LEDs
	FreqKHz    int     // NRZ bit clock, 2500 for WS2812
	Brightness float64 // 0-1 global dimmer
}

// SPIStrip drives WS281x LEDs through periph's NRZ encoder.
type SPIStrip struct {
	port       spi.PortCloser
	dev        *nrzled.Dev
	n          int
	brightness float64
	raw        []byte
}

// OpenSPI initializes the host drivers and opens the strip.
func OpenSPI(cfg SPIConfig) (*SPIStrip, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("lighting: invalid LED count %d", cfg.Count)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("lighting: host init: %w", err)
	}

	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("lighting: open spi %q: %w", cfg.Port, err)
	}

	freq := cfg.FreqKHz
	if freq <= 0 {
		freq = 2500
	}

	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: cfg.Count,
		Channels:  3,
		Freq:      physic.Frequency(freq) * physic.KiloHertz,
	})
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("lighting: nrzled: %w", err)
	}

	brightness := cfg.Brightness
	if brightness <= 0 || brightness > 1 {
		brightness = 1
	}

	return &SPIStrip{
		port:       port,
		dev:        dev,
		n:          cfg.Count,
		brightness: brightness,
		raw:        make([]byte, cfg.Count*3),
	}, nil
}

// Len returns the LED count.
func (s *SPIStrip) Len() int {
	return s.n
}

// Write encodes f as RGB bytes and pushes it out in one transfer.
func (s *SPIStrip) Write(f Frame) error {
	for i := 0; i < s.n; i++ {
		c := Off
		if i < len(f) {
			c = f[i].Scale(s.brightness)
		}
		s.raw[i*3] = c.R
		s.raw[i*3+1] = c.G
		s.raw[i*3+2] = c.B
	}
	if _, err := s.dev.Write(s.raw); err != nil {
		return fmt.Errorf("lighting: spi write: %w", err)
	}
	return nil
}

// Close turns the LEDs off and releases the port.
func (s *SPIStrip) Close() error {
	s.dev.Halt()
	return s.port.Close()
}
