package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{
		"SERVER_PORT", "PORT", "PROVIDER_EVENT_QUEUE", "NOTIFICATION_WORKERS",
		"NOTIFICATION_QUEUE_SIZE", "PROVIDER_TIMEOUT_SECONDS", "RECONCILE_SCHEDULE",
		"RECONCILE_STALE_AFTER_MINUTES", "REDIS_RATE_LIMIT_PREFIX",
	} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.ProviderEventQueue != "payment_service.provider_status_updates" {
		t.Fatalf("unexpected default provider event queue %q", cfg.ProviderEventQueue)
	}
	if cfg.NotificationWorkers != 5 {
		t.Fatalf("expected 5 default notification workers, got %d", cfg.NotificationWorkers)
	}
	if cfg.ProviderTimeoutSeconds != 30 {
		t.Fatalf("expected 30s default provider timeout, got %d", cfg.ProviderTimeoutSeconds)
	}
	if cfg.ReconcileSchedule != "@every 5m" {
		t.Fatalf("unexpected default reconcile schedule %q", cfg.ReconcileSchedule)
	}
	if cfg.ReconcileStaleAfterMins != 15 {
		t.Fatalf("expected 15 minute default stale cutoff, got %d", cfg.ReconcileStaleAfterMins)
	}
	if cfg.RedisRateLimitPrefix != "finsense:rate_limit" {
		t.Fatalf("unexpected default rate limit prefix %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9091")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9091" {
		t.Fatalf("expected PORT to override SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_UsesPaymentServiceInternalAPIKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "INTERNAL_API_KEY")
	setEnvWithCleanup(t, "PAYMENT_SERVICE_INTERNAL_API_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "alias-only-key" {
		t.Fatalf("expected InternalAPIKey from alias env var, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_InternalAPIKeyTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "INTERNAL_API_KEY", "primary-key")
	setEnvWithCleanup(t, "PAYMENT_SERVICE_INTERNAL_API_KEY", "alias-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "primary-key" {
		t.Fatalf("expected InternalAPIKey to prioritize INTERNAL_API_KEY, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_NegativeRateLimitIsDisabled(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "INITIATE_RATE_LIMIT_PER_MINUTE", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InitiateRateLimitPerMin != 0 {
		t.Fatalf("expected a negative rate limit to be coerced to 0, got %d", cfg.InitiateRateLimitPerMin)
	}
}

func TestLoadConfig_InvalidWorkerCountsFallBackToDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "NOTIFICATION_WORKERS", "0")
	setEnvWithCleanup(t, "NOTIFICATION_QUEUE_SIZE", "-1")
	setEnvWithCleanup(t, "PROVIDER_TIMEOUT_SECONDS", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.NotificationWorkers != 5 {
		t.Fatalf("expected worker count to fall back to 5, got %d", cfg.NotificationWorkers)
	}
	if cfg.NotificationQueueSize != 64 {
		t.Fatalf("expected queue size to fall back to 64, got %d", cfg.NotificationQueueSize)
	}
	if cfg.ProviderTimeoutSeconds != 30 {
		t.Fatalf("expected provider timeout to fall back to 30, got %d", cfg.ProviderTimeoutSeconds)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
