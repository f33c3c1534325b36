package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// BaseConfig is the root configuration container loaded by go-config from
// config/app.json plus environment overrides.
type BaseConfig struct {
	Server      Server      `json:"server" yaml:"server"`
	Auth        Auth        `json:"auth" yaml:"auth"`
	Persistence Persistence `json:"persistence" yaml:"persistence"`
	Email       Email       `json:"email" yaml:"email"`
	Client      Client      `json:"client" yaml:"client"`
}

func (a BaseConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Auth),
		validation.Field(&a.Persistence),
	)
}

func (a *BaseConfig) GetServer() *Server {
	return &a.Server
}

func (a *BaseConfig) GetAuth() *Auth {
	return &a.Auth
}

func (a *BaseConfig) GetPersistence() *Persistence {
	return &a.Persistence
}

func (a *BaseConfig) GetEmail() *Email {
	return &a.Email
}

func (a *BaseConfig) GetClient() *Client {
	return &a.Client
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr          string `json:"addr" yaml:"addr"`
	AllowedOrigin string `json:"allowed_origin" yaml:"allowed_origin"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":7077"
	}
	return s.Addr
}

func (s Server) GetAllowedOrigin() string {
	if s.AllowedOrigin == "" {
		return "http://localhost:5173"
	}
	return s.AllowedOrigin
}

// Auth satisfies authd.Config.
type Auth struct {
	SigningKey            string   `json:"signing_key" yaml:"signing_key"`
	SigningMethod         string   `json:"signing_method" yaml:"signing_method"`
	ContextKey            string   `json:"context_key" yaml:"context_key"`
	TokenExpiration       int      `json:"token_expiration" yaml:"token_expiration"`
	ExtendedTokenDuration int      `json:"extended_token_duration" yaml:"extended_token_duration"`
	TokenLookup           string   `json:"token_lookup" yaml:"token_lookup"`
	AuthScheme            string   `json:"auth_scheme" yaml:"auth_scheme"`
	Issuer                string   `json:"issuer" yaml:"issuer"`
	Audience              []string `json:"audience" yaml:"audience"`
}

func (c Auth) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required),
	)
}

func (c *Auth) GetSigningKey() string {
	return c.SigningKey
}

func (c *Auth) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

// GetContextKey doubles as the session cookie name.
func (c *Auth) GetContextKey() string {
	if c.ContextKey == "" {
		return "token"
	}
	return c.ContextKey
}

// GetTokenExpiration is the token TTL in hours.
func (c *Auth) GetTokenExpiration() int {
	if c.TokenExpiration == 0 {
		return 24
	}
	return c.TokenExpiration
}

func (c *Auth) GetExtendedTokenDuration() int {
	return c.ExtendedTokenDuration
}

func (c *Auth) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "cookie:" + c.GetContextKey()
	}
	return c.TokenLookup
}

func (c *Auth) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *Auth) GetIssuer() string {
	return c.Issuer
}

func (c *Auth) GetAudience() []string {
	return c.Audience
}

// Persistence holds the database settings consumed by go-persistence-bun.
type Persistence struct {
	Driver                string `json:"driver" yaml:"driver"`
	DSN                   string `json:"dsn" yaml:"dsn"`
	Debug                 bool   `json:"debug" yaml:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" yaml:"ping_timeout"`
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DSN, validation.Required),
	)
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

// GetServer satisfies persistence.Config; the DSN is the connection string.
func (p Persistence) GetServer() string {
	return p.DSN
}

// GetOtelIdentifier satisfies persistence.Config.
func (p Persistence) GetOtelIdentifier() string {
	return ""
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

// Email holds the SMTP relay settings for the notifier.
type Email struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
}

func (e Email) GetHost() string     { return e.Host }
func (e Email) GetUsername() string { return e.Username }
func (e Email) GetPassword() string { return e.Password }

func (e Email) GetPort() int {
	if e.Port == 0 {
		return 587
	}
	return e.Port
}

func (e Email) GetFrom() string {
	if e.From == "" {
		return e.Username
	}
	return e.From
}

// Client holds settings for the browser application the API serves.
type Client struct {
	// URL is the base used to build password reset links.
	URL string `json:"url" yaml:"url"`
}

func (c Client) GetURL() string {
	if c.URL == "" {
		return "http://localhost:5173"
	}
	return c.URL
}
