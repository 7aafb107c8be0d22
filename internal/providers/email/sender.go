package email

import (
	"context"
	"strings"

	"github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	"github.com/smallbiznis/sitebuilder/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type SenderParams struct {
	fx.In

	Provider Provider
	Log      *zap.Logger
	Metrics  *metrics.Metrics `optional:"true"`
}

// Sender delivers best-effort notifications; failures are logged and reported, never returned.
type Sender struct {
	provider Provider
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewSender(p SenderParams) *Sender {
	return &Sender{
		provider: p.Provider,
		log:      p.Log.Named("email.sender"),
		metrics:  p.Metrics,
	}
}

// Deliver renders and sends templateName to a single recipient and reports success.
func (s *Sender) Deliver(ctx context.Context, to string, templateName string, data map[string]any) bool {
	to = strings.TrimSpace(to)
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	log := s.log.With(
		zap.String("template", templateName),
		zap.String("correlation_id", cid),
	)

	if s.provider == nil || to == "" {
		log.Warn("email skipped", zap.Bool("has_recipient", to != ""))
		s.metrics.RecordEmail(ctx, templateName, false)
		return false
	}

	if err := s.provider.SendTemplate(ctx, []string{to}, templateName, data); err != nil {
		log.Warn("email delivery failed", zap.Error(err))
		s.metrics.RecordEmail(ctx, templateName, false)
		return false
	}

	log.Info("email delivered")
	s.metrics.RecordEmail(ctx, templateName, true)
	return true
}
