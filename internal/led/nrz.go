package led

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

var hostOnce sync.Once

// NRZ drives WS2812-class strips through an SPI port using the periph.io
// NRZ encoder.
type NRZ struct {
	mu    sync.Mutex
	port  spi.PortCloser
	dev   *nrzled.Dev
	buf   []byte
	count int
	order string
}

// NewNRZ opens the SPI port (empty name picks the first available) and
// prepares the encoder for count pixels. speedHz in the 2.4-3.2 MHz range
// works well; order is the strip's channel order, e.g. "GRB".
func NewNRZ(portName string, count, speedHz int, order string) (*NRZ, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	if speedHz <= 0 {
		speedHz = 2_400_000
	}
	var herr error
	hostOnce.Do(func() { _, herr = host.Init() })
	if herr != nil {
		return nil, fmt.Errorf("periph host init: %w", herr)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open spi port: %w", err)
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      physic.Frequency(speedHz) * physic.Hertz,
	})
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &NRZ{
		port:  port,
		dev:   dev,
		buf:   make([]byte, count*3),
		count: count,
		order: order,
	}, nil
}

func (d *NRZ) Write(rgb []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return fmt.Errorf("nrz driver closed")
	}
	if len(rgb) != d.count*3 {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), d.count)
	}
	if err := reorder(d.buf, rgb, d.order); err != nil {
		return err
	}
	if _, err := d.dev.Write(d.buf); err != nil {
		return fmt.Errorf("nrz write: %w", err)
	}
	return nil
}

func (d *NRZ) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != nil {
		_ = d.dev.Halt()
		d.dev = nil
	}
	if d.port != nil {
		err := d.port.Close()
		d.port = nil
		return err
	}
	return nil
}
