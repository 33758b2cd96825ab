package config

import "time"

type AppConfig struct {
	DBDriver   string         `yaml:"db_driver" env:"INCIDENT_DESK_DB_DRIVER" env-default:"sqlite"`
	DBURL      string         `yaml:"db_url" env:"INCIDENT_DESK_DB_URL" env-default:"data/incidents.db"`
	ListenAddr string         `yaml:"listen_addr" env:"INCIDENT_DESK_LISTEN_ADDR" env-default:"127.0.0.1:5000"`
	SessionTTL time.Duration  `yaml:"session_ttl" env:"INCIDENT_DESK_SESSION_TTL" env-default:"3h"`
	AppEnv     string         `yaml:"app_env" env:"INCIDENT_DESK_APP_ENV"`
	Pepper     string         `yaml:"pepper" env:"INCIDENT_DESK_PEPPER"`
	TLSEnabled bool           `yaml:"tls_enabled" env:"INCIDENT_DESK_TLS_ENABLED" env-default:"false"`
	TLSCert    string         `yaml:"tls_cert" env:"INCIDENT_DESK_TLS_CERT"`
	TLSKey     string         `yaml:"tls_key" env:"INCIDENT_DESK_TLS_KEY"`
	Auth       AuthConfig     `yaml:"auth"`
	Admin      AdminConfig    `yaml:"admin"`
	Sessions   SessionsConfig `yaml:"sessions"`
	Security   SecurityConfig `yaml:"security"`
	CORS       CORSConfig     `yaml:"cors"`
}

// AuthConfig selects between the open variant (anyone may mutate) and the
// single-admin variant.
type AuthConfig struct {
	Mode         string `yaml:"mode" env:"INCIDENT_DESK_AUTH_MODE" env-default:"admin"`
	ProtectReads bool   `yaml:"protect_reads" env:"INCIDENT_DESK_AUTH_PROTECT_READS" env-default:"false"`
}

const (
	AuthModeOpen  = "open"
	AuthModeAdmin = "admin"
)

func (a AuthConfig) Enabled() bool {
	return a.Mode != AuthModeOpen
}

type AdminConfig struct {
	Password string `yaml:"password" env:"INCIDENT_DESK_ADMIN_PASSWORD"`
}

type SessionsConfig struct {
	SweepSpec string `yaml:"sweep_spec" env:"INCIDENT_DESK_SESSIONS_SWEEP_SPEC" env-default:"@every 10m"`
}

type SecurityConfig struct {
	TrustedProxies []string `yaml:"trusted_proxies" env:"INCIDENT_DESK_SECURITY_TRUSTED_PROXIES" env-separator:","`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"INCIDENT_DESK_CORS_ALLOWED_ORIGINS" env-separator:","`
}

// DefaultAdminUsername is the only admin account the system ever holds.
const DefaultAdminUsername = "admin"

const maxSessionTTL = 3 * time.Hour

func (c *AppConfig) EffectiveSessionTTL() time.Duration {
	ttl := maxSessionTTL
	if c != nil && c.SessionTTL > 0 {
		ttl = c.SessionTTL
	}
	if ttl > maxSessionTTL {
		return maxSessionTTL
	}
	return ttl
}

func (c *AppConfig) IsPostgres() bool {
	if c == nil {
		return false
	}
	return c.DBDriver == DriverPostgres
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
