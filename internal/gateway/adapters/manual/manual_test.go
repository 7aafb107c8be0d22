package manual

import (
	"context"
	"strings"
	"testing"

	"github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentPointsToConfirmPage(t *testing.T) {
	adapter, err := NewFactory().NewAdapter(domain.AdapterConfig{PublicURL: "https://webku.id/"})
	require.NoError(t, err)

	first, err := adapter.CreatePayment(context.Background(), domain.PaymentRequest{OrderNumber: "ORD-240101-AB12", Amount: 1})
	require.NoError(t, err)
	second, err := adapter.CreatePayment(context.Background(), domain.PaymentRequest{OrderNumber: "ORD-240101-AB12", Amount: 1})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.GatewayRef, RefPrefix))
	assert.Len(t, first.GatewayRef, len(RefPrefix)+26)
	assert.NotEqual(t, first.GatewayRef, second.GatewayRef)
	assert.Equal(t, "https://webku.id/payment/confirm?order=ORD-240101-AB12", first.PaymentURL)
	assert.Equal(t, domain.GatewayManual, first.GatewayName)

	_, err = adapter.ParseWebhook(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrWebhookUnsupported)
}
