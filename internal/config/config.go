package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Reservation ReservationConfig
	Payment     PaymentConfig
	Auth        AuthConfig
	AMQP        AMQPConfig
	Store       StoreConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// IdempotencyTTL is how long a stored checkout response is replayed.
	IdempotencyTTL time.Duration
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
	Migrate  bool
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type ReservationConfig struct {
	MinLockTTL     time.Duration
	MaxLockTTL     time.Duration
	DefaultLockTTL time.Duration
	PaymentTTL     time.Duration
	SweepInterval  time.Duration
}

type PaymentConfig struct {
	// GatewayURL empty selects the sandbox gateway.
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
	Currency   string
	SandboxURL string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type StoreConfig struct {
	Driver      string
	SeedFile    string
	DemoEventID int64
}

type RateLimitConfig struct {
	Locks  int
	Window time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	serverCfg := ServerConfig{
		Host: stringEnv("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	storeCfg := StoreConfig{
		Driver:   stringEnv("STORE_DRIVER", StorePostgres),
		SeedFile: os.Getenv("STORE_SEED_FILE"),
	}
	if storeCfg.Driver != StorePostgres && storeCfg.Driver != StoreMemory {
		return nil, fmt.Errorf("%s: invalid STORE_DRIVER %q", op, storeCfg.Driver)
	}

	demoEventID, err := intEnv("STORE_DEMO_EVENT_ID", 1)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	storeCfg.DemoEventID = int64(demoEventID)

	postgresCfg, err := postgresConfig(storeCfg.Driver == StorePostgres)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	idemTTL, err := durationEnv("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:           os.Getenv("REDIS_ADDR"),
		Password:       os.Getenv("REDIS_PASSWORD"),
		DB:             redisDB,
		IdempotencyTTL: idemTTL,
	}

	reservationCfg, err := reservationConfig()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	paymentTimeout, err := durationEnv("PAYMENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	paymentCfg := PaymentConfig{
		GatewayURL: os.Getenv("PAYMENT_GATEWAY_URL"),
		APIKey:     os.Getenv("PAYMENT_API_KEY"),
		Timeout:    paymentTimeout,
		Currency:   stringEnv("PAYMENT_CURRENCY", "KWD"),
		SandboxURL: stringEnv("PAYMENT_SANDBOX_URL", "https://pay.sandbox.local"),
	}

	authCfg := AuthConfig{
		JWTSecret: os.Getenv("JWT_SECRET"),
		Issuer:    os.Getenv("JWT_ISSUER"),
	}
	if authCfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	amqpCfg := AMQPConfig{
		URL:      os.Getenv("AMQP_URL"),
		Exchange: stringEnv("AMQP_EXCHANGE", "tixcheckout.bookings"),
	}

	rlLocks, err := intEnv("RATE_LIMIT_LOCKS", 30)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rlWindow, err := durationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Config{
		Server:      serverCfg,
		Postgres:    postgresCfg,
		Redis:       redisCfg,
		Reservation: reservationCfg,
		Payment:     paymentCfg,
		Auth:        authCfg,
		AMQP:        amqpCfg,
		Store:       storeCfg,
		RateLimit:   RateLimitConfig{Locks: rlLocks, Window: rlWindow},
	}, nil
}

// postgresConfig reads the POSTGRES_* group. Credentials are mandatory only
// when the postgres store is selected.
func postgresConfig(required bool) (PostgresConfig, error) {
	port, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	maxConns, err := intEnv("POSTGRES_MAX_CONNS", 10)
	if err != nil {
		return PostgresConfig{}, err
	}

	migrate, err := boolEnv("POSTGRES_MIGRATE", true)
	if err != nil {
		return PostgresConfig{}, err
	}

	cfg := PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     stringEnv("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
		Migrate:  migrate,
	}

	if !required {
		return cfg, nil
	}

	switch {
	case cfg.User == "":
		return cfg, fmt.Errorf("missing POSTGRES_USER")
	case cfg.Password == "":
		return cfg, fmt.Errorf("missing POSTGRES_PASSWORD")
	case cfg.Name == "":
		return cfg, fmt.Errorf("missing POSTGRES_DB")
	}

	return cfg, nil
}

func reservationConfig() (ReservationConfig, error) {
	var cfg ReservationConfig

	fields := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"LOCK_TTL_MIN", 15 * time.Second, &cfg.MinLockTTL},
		{"LOCK_TTL_MAX", 15 * time.Minute, &cfg.MaxLockTTL},
		{"LOCK_TTL_DEFAULT", 10 * time.Minute, &cfg.DefaultLockTTL},
		{"PAYMENT_TTL", 10 * time.Minute, &cfg.PaymentTTL},
		{"LOCK_SWEEP_INTERVAL", 5 * time.Second, &cfg.SweepInterval},
	}
	for _, f := range fields {
		d, err := durationEnv(f.key, f.def)
		if err != nil {
			return cfg, err
		}
		*f.dst = d
	}

	if cfg.MinLockTTL > cfg.MaxLockTTL {
		return cfg, fmt.Errorf("LOCK_TTL_MIN %s exceeds LOCK_TTL_MAX %s", cfg.MinLockTTL, cfg.MaxLockTTL)
	}

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
