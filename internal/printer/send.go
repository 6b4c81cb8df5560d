package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go-pos-store/internal/model"
)

// ErrPrinterUnavailable is returned when the configured printer cannot take jobs.
var ErrPrinterUnavailable = errors.New("printer unavailable")

const defaultDialTimeout = 3 * time.Second

// Sender delivers rendered receipts to network printers over raw TCP.
type Sender struct {
	DialTimeout time.Duration
	// Dial replaces the TCP dialer when set.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Print renders r for the configured paper width and sends it.
func (s Sender) Print(ctx context.Context, cfg model.PrinterSettings, r Receipt) error {
	addr, err := Address(cfg)
	if err != nil {
		return err
	}
	return s.Send(ctx, addr, Render(r, Columns(cfg.PaperWidth)))
}

// Address returns ip:port of an enabled network printer.
func Address(cfg model.PrinterSettings) (string, error) {
	if !cfg.Enabled {
		return "", fmt.Errorf("%w: printing is disabled", ErrPrinterUnavailable)
	}
	if cfg.ConnectionType != model.PrinterNetwork {
		return "", fmt.Errorf("%w: %s printers are not supported", ErrPrinterUnavailable, cfg.ConnectionType)
	}
	if cfg.IPAddress == nil || *cfg.IPAddress == "" {
		return "", fmt.Errorf("%w: no ip address configured", ErrPrinterUnavailable)
	}
	return net.JoinHostPort(*cfg.IPAddress, strconv.Itoa(cfg.Port)), nil
}

func (s Sender) Send(ctx context.Context, addr string, data []byte) error {
	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dial := s.Dial
	if dial == nil {
		d := net.Dialer{Timeout: timeout}
		dial = d.DialContext
	}
	conn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrinterUnavailable, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("write to printer %s: %w", addr, err)
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write to printer %s: %w", addr, err)
	}
	return nil
}
