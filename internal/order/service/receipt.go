package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/sitebuilder/internal/order/domain"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/providers/pdf"
	"go.uber.org/zap"
)

const receiptDateLayout = "02 Jan 2006"

func (s *Service) Receipt(ctx context.Context, idOrNumber string) (*domain.Receipt, error) {
	order, err := s.Get(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}

	var (
		latest *paymentdomain.Payment
		paid   int64
	)
	for i := range order.Payments {
		p := &order.Payments[i]
		if p.Status != paymentdomain.StatusPaid {
			continue
		}
		paid += p.Amount
		if latest == nil || (p.PaidAt != nil && latest.PaidAt != nil && p.PaidAt.After(*latest.PaidAt)) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrReceiptUnavailable
	}

	app, err := s.appConfig.AppSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	paidAt := latest.UpdatedAt
	if latest.PaidAt != nil {
		paidAt = *latest.PaidAt
	}
	method := latest.Method
	if method == "" {
		method = latest.GatewayName
	}

	description := "Website"
	if order.Package != nil {
		description = "Website " + order.Package.Name
	}
	if order.PaymentType == domain.PaymentTypeDP {
		description += " (down payment)"
	}

	total := order.Amount
	if order.Package != nil {
		total = order.Package.Price
	}
	data := pdf.ReceiptData{
		AppName:      app.AppName,
		SupportEmail: app.SupportEmail,
		OrderNumber:  order.OrderNumber,
		DatePaid:     paidAt.Format(receiptDateLayout),
		Method:       method,
		Reference:    latest.Ref(),
		ClientName:   order.ClientName,
		BrandName:    order.BrandName,
		Email:        order.Email,
		Phone:        order.Phone,
		Address:      order.Address,
		Items:        []pdf.ReceiptItem{{Description: description + " - " + order.BrandName, Amount: pdf.Rupiah(order.Amount)}},
		Total:        pdf.Rupiah(total),
		AmountPaid:   pdf.Rupiah(paid),
	}
	if balance := total - paid; balance > 0 {
		data.Balance = pdf.Rupiah(balance)
	}

	content, err := s.renderer.Receipt(ctx, data)
	if err != nil {
		s.log.Error("render receipt failed", zap.String("order_number", order.OrderNumber), zap.Error(err))
		return nil, err
	}
	return &domain.Receipt{
		FileName: "receipt-" + strings.ToLower(order.OrderNumber) + ".pdf",
		Content:  content,
	}, nil
}
