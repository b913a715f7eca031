package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration values
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for
// time-based policies.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to verify JWTs issued by the auth service
	ProviderBaseURL string        // base URL of the external checkout-session provider
	ProviderAPIKey  string        // API key sent to the provider on every call
	WebhookSecret   string        // shared secret for verifying provider webhook signatures
	SuccessURL      string        // redirect target after a successful provider checkout
	CancelURL       string        // redirect target after an abandoned provider checkout
	ReconcileWindow time.Duration // how long a completed session remains reconcilable
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),                           // environment (dev/test/prod)
		Port:            must("APP_PORT"),                          // port to bind the HTTP server
		DBUser:          must("DB_USER"),                           // database user
		DBPass:          os.Getenv("DB_PASS"),                      // database password (empty allowed)
		DBHost:          must("DB_HOST"),                           // database host
		DBPort:          must("DB_PORT"),                           // database port
		DBName:          must("DB_NAME"),                           // database name
		JWTSecret:       must("JWT_SECRET"),                        // secret for verifying JWTs
		ProviderBaseURL: must("PAYMENT_PROVIDER_URL"),              // checkout-session provider endpoint
		ProviderAPIKey:  must("PAYMENT_PROVIDER_KEY"),              // provider API key
		WebhookSecret:   must("PAYMENT_WEBHOOK_SECRET"),            // webhook signing secret
		SuccessURL:      must("PAYMENT_SUCCESS_URL"),               // checkout success redirect
		CancelURL:       must("PAYMENT_CANCEL_URL"),                // checkout cancel redirect
		ReconcileWindow: mustDur("RECONCILE_WINDOW", 72*time.Hour), // reconcilable session window
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustDur reads an optional duration variable, falling back to the supplied
// default when unset.  An unparsable value is fatal so that configuration
// mistakes are caught at startup rather than at reconciliation time.
func mustDur(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}

// envStr, envBool, envInt and envDur are shared helpers for the optional
// feature configs (rate limiting) defined in this package.
func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
