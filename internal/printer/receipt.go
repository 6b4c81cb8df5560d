// Package printer renders receipts as ESC/POS byte streams and sends them to
// network thermal printers.
package printer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Line is one ordered product on a receipt.
type Line struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Note     string          `json:"note,omitempty"`
}

// Receipt is everything printed for one order. Amounts are tax-inclusive:
// Net + Tax == Total.
type Receipt struct {
	StoreName     string          `json:"store_name"`
	Address       string          `json:"address,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	TaxID         string          `json:"tax_id,omitempty"`
	OrderNumber   int             `json:"order_number"`
	Status        string          `json:"status"`
	Date          time.Time       `json:"date"`
	Cashier       string          `json:"cashier,omitempty"`
	Customer      string          `json:"customer,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Lines         []Line          `json:"lines"`
	Currency      string          `json:"currency"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Net           decimal.Decimal `json:"net"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Footer        string          `json:"footer,omitempty"`
}

var (
	cmdInit        = []byte{0x1b, 0x40}
	cmdAlignLeft   = []byte{0x1b, 0x61, 0x00}
	cmdAlignCenter = []byte{0x1b, 0x61, 0x01}
	cmdBoldOn      = []byte{0x1b, 0x45, 0x01}
	cmdBoldOff     = []byte{0x1b, 0x45, 0x00}
	cmdDoubleOn    = []byte{0x1d, 0x21, 0x11}
	cmdDoubleOff   = []byte{0x1d, 0x21, 0x00}
	cmdCut         = []byte{0x1d, 0x56, 0x42, 0x00}
)

// Columns is the number of characters per line for a paper width in mm.
func Columns(paperWidth int) int {
	if paperWidth <= 58 {
		return 32
	}
	return 48
}

// Render lays r out for a printer with cols characters per line.
func Render(r Receipt, cols int) []byte {
	var b bytes.Buffer
	b.Write(cmdInit)

	b.Write(cmdAlignCenter)
	b.Write(cmdBoldOn)
	b.Write(cmdDoubleOn)
	writeLine(&b, fit(r.StoreName, cols/2))
	b.Write(cmdDoubleOff)
	b.Write(cmdBoldOff)
	for _, s := range []string{r.Address, r.Phone, r.TaxID} {
		if s != "" {
			writeLine(&b, fit(s, cols))
		}
	}

	b.Write(cmdAlignLeft)
	writeLine(&b, strings.Repeat("=", cols))
	writeLine(&b, pair(fmt.Sprintf("Order #%d", r.OrderNumber), r.Date.Format("2006-01-02 15:04"), cols))
	if r.Cashier != "" {
		writeLine(&b, fit("Cashier: "+r.Cashier, cols))
	}
	if r.Customer != "" {
		writeLine(&b, fit("Customer: "+r.Customer, cols))
	}
	writeLine(&b, strings.Repeat("-", cols))

	for _, l := range r.Lines {
		writeLine(&b, fit(l.Name, cols))
		writeLine(&b, pair(fmt.Sprintf("  %d x %s", l.Quantity, l.Price.StringFixed(2)), l.Subtotal.StringFixed(2), cols))
		if l.Note != "" {
			writeLine(&b, fit("  * "+l.Note, cols))
		}
	}

	writeLine(&b, strings.Repeat("-", cols))
	writeLine(&b, pair("Net", r.Net.StringFixed(2), cols))
	writeLine(&b, pair("Tax "+r.TaxRate.String()+"%", r.Tax.StringFixed(2), cols))
	b.Write(cmdBoldOn)
	writeLine(&b, pair("TOTAL "+r.Currency, r.Total.StringFixed(2), cols))
	b.Write(cmdBoldOff)
	writeLine(&b, pair("Payment", r.PaymentMethod, cols))

	if r.Footer != "" {
		b.Write(cmdAlignCenter)
		writeLine(&b, "")
		for _, s := range strings.Split(r.Footer, "\n") {
			writeLine(&b, fit(s, cols))
		}
	}
	b.WriteString("\n\n\n")
	b.Write(cmdCut)
	return b.Bytes()
}

func writeLine(b *bytes.Buffer, s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

// fit cuts s to at most n characters.
func fit(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// pair prints left and right on one line, shortening left when both don't fit.
func pair(left, right string, cols int) string {
	room := cols - len([]rune(right)) - 1
	if room < 0 {
		return fit(right, cols)
	}
	left = fit(left, room)
	return left + strings.Repeat(" ", cols-len([]rune(left))-len([]rune(right))) + right
}
