package email

import (
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromLoader),
	fx.Provide(NewSender),
)

// NewFromLoader builds an SMTP provider that reads settings from the admin-managed email config.
func NewFromLoader(loader appconfigdomain.Loader) Provider {
	return NewSMTP(loader)
}
