package pdf

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Renderer produces printable documents for customers.
type Renderer interface {
	Receipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

// Rupiah formats an amount in the smallest currency unit as "Rp 1.250.000".
func Rupiah(amount int64) string {
	negative := amount < 0
	digits := decimal.NewFromInt(amount).Abs().String()

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if negative {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
