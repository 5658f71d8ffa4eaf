package payment

import (
	"github.com/smallbiznis/popstore/internal/config"
	"github.com/smallbiznis/popstore/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/popstore/internal/payment/domain"
	"github.com/smallbiznis/popstore/internal/payment/repository"
	"github.com/smallbiznis/popstore/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) paymentdomain.SignatureVerifier {
		return stripe.NewVerifier(cfg.Webhook.SignatureTolerance)
	}),
	fx.Provide(func() paymentdomain.EventDecoder {
		return stripe.NewDecoder()
	}),
	fx.Provide(func(cfg config.Config) paymentdomain.SessionFactory {
		return stripe.NewSessionClient(cfg.Stripe.SecretKey, cfg.Stripe.APIBase, nil)
	}),
	fx.Provide(webhook.NewReconciler),
)
