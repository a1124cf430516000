package config // package config loads application configuration from environment variables

import (
	"log"	  // log is used to report configuration errors and halt execution
	"os"	  // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"	  // time parses duration values
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.	 Booking holds and the reclaimer cadence are
// tunable so that tests and staging environments can shorten them.
type Config struct {
	Env				 string		   // application environment (e.g. "dev", "prod")
	Port			 string		   // HTTP port to listen on
	DBUser			 string		   // database username
	DBPass			 string		   // database password (optional)
	DBHost			 string		   // database host address
	DBPort			 string		   // database port number
	DBName			 string		   // database name
	JWTSecret		 string		   // secret used to verify access tokens
	PaymentHold		 time.Duration // how long a confirmed order may stay unpaid
	PendingHold		 time.Duration // how long a pending order may stay unconfirmed
	ReclaimInterval	 time.Duration // cadence of the expiry reclaimer sweep
	DailyCancelLimit int		   // cancellations allowed per user per day
	CacheTTL		 time.Duration // lifetime of cached availability responses
	CachePrefix		 string		   // key namespace for the availability cache
}

// Load reads configuration values from environment variables and returns a
// Config.	Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.	Hold durations and
// the cancellation cap default to the production values (20 minute payment
// hold, 10 minute pending hold, 60 second sweep, 3 cancellations per day).
func Load() Config {
	return Config{
		Env:			  must("APP_ENV"),		// environment (dev/test/prod)
		Port:			  must("APP_PORT"),		// port to bind the HTTP server
		DBUser:			  must("DB_USER"),		// database user
		DBPass:			  os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:			  must("DB_HOST"),		// database host
		DBPort:			  must("DB_PORT"),		// database port
		DBName:			  must("DB_NAME"),		// database name
		JWTSecret:		  must("JWT_SECRET"),	// secret used for verifying JWTs
		PaymentHold:	  minutes("PAYMENT_HOLD_MIN", 20),
		PendingHold:	  minutes("PENDING_HOLD_MIN", 10),
		ReclaimInterval:  seconds("RECLAIM_INTERVAL_SEC", 60),
		DailyCancelLimit: atoiDefault("DAILY_CANCEL_LIMIT", 3),
		CacheTTL:		  parseDur(getenv("CACHE_TTL", "30s")),
		CachePrefix:	  getenv("CACHE_PREFIX", "avail"),
	}
}

// must retrieves the value of a required environment variable.	 If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenv returns the value of an environment variable or a default when
// unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// atoiDefault converts an optional integer variable, falling back to def on
// absence and exiting on malformed input.
func atoiDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func minutes(key string, def int) time.Duration {
	return time.Duration(atoiDefault(key, def)) * time.Minute
}

func seconds(key string, def int) time.Duration {
	return time.Duration(atoiDefault(key, def)) * time.Second
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
