package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/popstore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const keyCheckoutIP = "checkout:ip:%s"

const (
	defaultCheckoutPerMinute = 20
	defaultCheckoutBurst     = 5
)

type CheckoutParams struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Client redis.UniversalClient `optional:"true"`
}

// CheckoutLimiter throttles checkout initiation per client IP. It uses the
// shared redis bucket when available and the local limiter otherwise, or when
// redis errors.
type CheckoutLimiter struct {
	log    *zap.Logger
	bucket *TokenBucket
	local  *KeyedLimiter
	rate   float64
	burst  int
}

func NewCheckoutLimiter(p CheckoutParams) *CheckoutLimiter {
	perMinute := p.Cfg.Checkout.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = defaultCheckoutPerMinute
	}
	burst := p.Cfg.Checkout.RateLimitBurst
	if burst <= 0 {
		burst = defaultCheckoutBurst
	}
	perSecond := float64(perMinute) / 60

	l := &CheckoutLimiter{
		log:   p.Log.Named("ratelimit.checkout"),
		local: NewKeyedLimiter(rate.Limit(perSecond), burst, 0),
		rate:  perSecond,
		burst: burst,
	}
	if p.Client != nil {
		l.bucket = NewTokenBucket(p.Client)
	}
	return l
}

func (l *CheckoutLimiter) Allow(ctx context.Context, ip string) Result {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	if l.bucket != nil {
		res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutIP, ip), l.rate, l.burst)
		if err == nil {
			return res
		}
		l.log.Warn("redis rate limit failed, using local limiter", zap.Error(err))
	}
	return l.local.Allow(ip)
}
