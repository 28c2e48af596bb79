package config_test

import (
	"testing"
	"time"

	"z7shop/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, "usd", cfg.StripeCurrency)
	assert.Equal(t, "4.99", cfg.StandardDeliveryFee.StringFixed(2))
	assert.Equal(t, "9.99", cfg.ExpressDeliveryFee.StringFixed(2))
	assert.False(t, cfg.CookieSecure)
}

func TestFromViper_ProductionSecuresCookies(t *testing.T) {
	v := newViper()
	v.Set("APP_ENV", "production")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.CookieSecure)

	v.Set("COOKIE_SECURE", false)
	cfg, err = config.FromViper(v)
	require.NoError(t, err)
	assert.False(t, cfg.CookieSecure)
}

func TestFromViper_Rejections(t *testing.T) {
	v := newViper()
	v.Set("DB_DRIVER", "mysql")
	_, err := config.FromViper(v)
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")

	v = newViper()
	v.Set("DELIVERY_EXPRESS_FEE", "free")
	_, err = config.FromViper(v)
	assert.ErrorContains(t, err, "DELIVERY_EXPRESS_FEE")

	v = newViper()
	v.Set("SESSION_TTL", "0s")
	_, err = config.FromViper(v)
	assert.Error(t, err)
}

func TestFromViper_ProxySettings(t *testing.T) {
	cfg, err := config.FromViper(newViper())
	require.NoError(t, err)
	assert.Empty(t, cfg.ProxyHeader)
	assert.Empty(t, cfg.TrustedProxies)

	v := newViper()
	v.Set("PROXY_HEADER", " X-Forwarded-For ")
	v.Set("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.0/8,,")
	cfg, err = config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "X-Forwarded-For", cfg.ProxyHeader)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.TrustedProxies)
}
