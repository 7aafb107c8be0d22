package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingOrderNumber = errors.New("receipt_missing_order_number")

type ReceiptData struct {
	AppName      string
	SupportEmail string

	OrderNumber string
	DatePaid    string
	Method      string
	Reference   string

	ClientName string
	BrandName  string
	Email      string
	Phone      string
	Address    string

	Items []ReceiptItem

	Total      string
	AmountPaid string
	Balance    string
}

type ReceiptItem struct {
	Description string
	Amount      string
}

func (r *MarotoRenderer) Receipt(ctx context.Context, receipt ReceiptData) ([]byte, error) {
	if receipt.OrderNumber == "" {
		return nil, ErrMissingOrderNumber
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(6, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, receipt.AppName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Order number: "+receipt.OrderNumber, props.Text{Top: 0}),
			text.New("Date paid: "+receipt.DatePaid, props.Text{Top: 4}),
			text.New("Payment method: "+receipt.Method, props.Text{Top: 8}),
			text.New("Reference: "+receipt.Reference, props.Text{Top: 12}),
		),
		col.New(6),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Billed to", props.Text{Style: fontstyle.Bold}),
			text.New(receipt.ClientName, props.Text{Top: 5}),
			text.New(receipt.BrandName, props.Text{Top: 9}),
			text.New(receipt.Email, props.Text{Top: 13}),
			text.New(receipt.Phone, props.Text{Top: 17}),
			text.New(receipt.Address, props.Text{Top: 21}),
		),
		col.New(6).Add(
			text.New(receipt.AppName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(receipt.SupportEmail, props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.AmountPaid+" paid on "+receipt.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(9, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range receipt.Items {
		m.AddRow(10,
			text.NewCol(9, item.Description, props.Text{Size: 9}),
			text.NewCol(3, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total", props.Text{Size: 9}),
		text.NewCol(3, receipt.Total, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Amount paid", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, receipt.AmountPaid, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	if receipt.Balance != "" {
		m.AddRow(10,
			col.New(6),
			text.NewCol(3, "Balance due", props.Text{Size: 9}),
			text.NewCol(3, receipt.Balance, props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
