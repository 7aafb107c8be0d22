package providers

import (
	"github.com/smallbiznis/sitebuilder/internal/providers/email"
	"github.com/smallbiznis/sitebuilder/internal/providers/pdf"
	"github.com/smallbiznis/sitebuilder/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	storage.Module,
)
