/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the payment-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	ProviderEventQueue      string `mapstructure:"PROVIDER_EVENT_QUEUE"`
	InternalAPIKey          string `mapstructure:"INTERNAL_API_KEY"`
	JWKSURL                 string `mapstructure:"JWKS_URL"`
	NotificationWorkers     int    `mapstructure:"NOTIFICATION_WORKERS"`
	NotificationQueueSize   int    `mapstructure:"NOTIFICATION_QUEUE_SIZE"`
	ProviderTimeoutSeconds  int    `mapstructure:"PROVIDER_TIMEOUT_SECONDS"`
	InitiateRateLimitPerMin int    `mapstructure:"INITIATE_RATE_LIMIT_PER_MINUTE"`
	ReconcileSchedule       string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileStaleAfterMins int    `mapstructure:"RECONCILE_STALE_AFTER_MINUTES"`
	SMSGatewayURL           string `mapstructure:"SMS_GATEWAY_URL"`
	SMSGatewayAPIKey        string `mapstructure:"SMS_GATEWAY_API_KEY"`
	SMSGatewaySenderID      string `mapstructure:"SMS_GATEWAY_SENDER_ID"`
	MpesaAPIBaseURL         string `mapstructure:"MPESA_API_BASE_URL"`
	MpesaConsumerKey        string `mapstructure:"MPESA_CONSUMER_KEY"`
	MpesaConsumerSecret     string `mapstructure:"MPESA_CONSUMER_SECRET"`
	MpesaInitiatorName      string `mapstructure:"MPESA_INITIATOR_NAME"`
	MpesaSecurityCredential string `mapstructure:"MPESA_SECURITY_CREDENTIAL"`
	MpesaShortCode          string `mapstructure:"MPESA_SHORT_CODE"`
	MpesaResultURL          string `mapstructure:"MPESA_RESULT_URL"`
	MpesaQueueTimeoutURL    string `mapstructure:"MPESA_QUEUE_TIMEOUT_URL"`
	AirtelAPIBaseURL        string `mapstructure:"AIRTEL_API_BASE_URL"`
	AirtelAPIKey            string `mapstructure:"AIRTEL_API_KEY"`
	AirtelCountry           string `mapstructure:"AIRTEL_COUNTRY"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PROVIDER_EVENT_QUEUE", "payment_service.provider_status_updates")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "finsense:rate_limit")
	viper.SetDefault("NOTIFICATION_WORKERS", 5)
	viper.SetDefault("NOTIFICATION_QUEUE_SIZE", 64)
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 30)
	viper.SetDefault("INITIATE_RATE_LIMIT_PER_MINUTE", 0)
	viper.SetDefault("RECONCILE_SCHEDULE", "@every 5m")
	viper.SetDefault("RECONCILE_STALE_AFTER_MINUTES", 15)
	viper.SetDefault("AIRTEL_COUNTRY", "KE")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "PAYMENT_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PROVIDER_EVENT_QUEUE")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "PAYMENT_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("NOTIFICATION_WORKERS")
	_ = viper.BindEnv("NOTIFICATION_QUEUE_SIZE")
	_ = viper.BindEnv("PROVIDER_TIMEOUT_SECONDS")
	_ = viper.BindEnv("INITIATE_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RECONCILE_SCHEDULE")
	_ = viper.BindEnv("RECONCILE_STALE_AFTER_MINUTES")
	_ = viper.BindEnv("SMS_GATEWAY_URL")
	_ = viper.BindEnv("SMS_GATEWAY_API_KEY")
	_ = viper.BindEnv("SMS_GATEWAY_SENDER_ID")
	_ = viper.BindEnv("MPESA_API_BASE_URL")
	_ = viper.BindEnv("MPESA_CONSUMER_KEY")
	_ = viper.BindEnv("MPESA_CONSUMER_SECRET")
	_ = viper.BindEnv("MPESA_INITIATOR_NAME")
	_ = viper.BindEnv("MPESA_SECURITY_CREDENTIAL")
	_ = viper.BindEnv("MPESA_SHORT_CODE")
	_ = viper.BindEnv("MPESA_RESULT_URL")
	_ = viper.BindEnv("MPESA_QUEUE_TIMEOUT_URL")
	_ = viper.BindEnv("AIRTEL_API_BASE_URL")
	_ = viper.BindEnv("AIRTEL_API_KEY")
	_ = viper.BindEnv("AIRTEL_COUNTRY")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("PAYMENT_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "finsense:rate_limit"
	}

	if config.NotificationWorkers <= 0 {
		config.NotificationWorkers = 5
	}
	if config.NotificationQueueSize <= 0 {
		config.NotificationQueueSize = 64
	}
	if config.ProviderTimeoutSeconds <= 0 {
		config.ProviderTimeoutSeconds = 30
	}
	if config.InitiateRateLimitPerMin < 0 {
		log.Printf("level=warn component=config msg=\"negative initiate rate limit configured; disabling\" limit=%d", config.InitiateRateLimitPerMin)
		config.InitiateRateLimitPerMin = 0
	}
	if strings.TrimSpace(config.ReconcileSchedule) == "" {
		config.ReconcileSchedule = "@every 5m"
	}
	if config.ReconcileStaleAfterMins <= 0 {
		config.ReconcileStaleAfterMins = 15
	}

	return
}
