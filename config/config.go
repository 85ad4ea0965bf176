package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "64KB"

	defaultRefreshCookieName = "refresh_token"
	defaultAccessCookieName  = "access_token"

	defaultGitHubSuccessRedirect = "/"
	defaultGitHubFailureRedirect = "/login?error=oauth_failed"
	defaultGitHubScope           = "read:user"

	defaultRedisKeyPrefix = "warden"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
		// AuthRateLimit bounds requests per second per client IP on the /auth group. Zero disables it.
		AuthRateLimit float64 `json:"authRateLimit" yaml:"authRateLimit"`
		AuthRateBurst int     `json:"authRateBurst" yaml:"authRateBurst"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	SecretKey SecretKeyConfig `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// GitHubOAuth is optional; the GitHub routes answer with a failure redirect when it is absent.
	GitHubOAuth *GitHubOAuthConfig `json:"githubOAuth" yaml:"githubOAuth"`

	// PubSub configuration for account event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// Redis is optional. When present, OAuth state is shared through it so any
	// instance can complete a flow another instance started.
	Redis *RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig defines the shared key-value store.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// SecretKeyConfig holds the HMAC secrets, one per token kind.
type SecretKeyConfig struct {
	Access  string `json:"access" yaml:"access"`
	Refresh string `json:"refresh" yaml:"refresh"`
}

// AuthConfig defines the session lifecycle settings.
type AuthConfig struct {
	AccessTTLHours int `json:"accessTTLHours" yaml:"accessTTLHours"`
	RefreshTTLDays int `json:"refreshTTLDays" yaml:"refreshTTLDays"`
	BcryptCost     int `json:"bcryptCost" yaml:"bcryptCost"`

	// PurgeInterval controls the expired refresh token sweep. Zero disables it.
	PurgeInterval time.Duration `json:"purgeInterval" yaml:"purgeInterval"`

	Cookie CookieConfig `json:"cookie" yaml:"cookie"`
}

// CookieConfig defines how session credentials are written to the client.
type CookieConfig struct {
	Secure      bool   `json:"secure" yaml:"secure"`
	RefreshName string `json:"refreshName" yaml:"refreshName"`
	AccessName  string `json:"accessName" yaml:"accessName"`
}

// GitHubOAuthConfig defines the GitHub OAuth application.
type GitHubOAuthConfig struct {
	ClientID        string   `json:"clientId" yaml:"clientId"`
	ClientSecret    string   `json:"clientSecret" yaml:"clientSecret"`
	RedirectURL     string   `json:"redirectUrl" yaml:"redirectUrl"`
	Scopes          []string `json:"scopes" yaml:"scopes"`
	SuccessRedirect string   `json:"successRedirect" yaml:"successRedirect"`
	FailureRedirect string   `json:"failureRedirect" yaml:"failureRedirect"`
	// APIBaseURL overrides https://api.github.com, used by tests.
	APIBaseURL string `json:"apiBaseUrl" yaml:"apiBaseUrl"`
	// RequestsPerSecond throttles outbound GitHub API calls.
	RequestsPerSecond int `json:"requestsPerSecond" yaml:"requestsPerSecond"`
}

// PubSubConfig defines Pub/Sub configuration for account event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	ProjectID     string `json:"projectId" yaml:"projectId"`
	TopicID       string `json:"topicId" yaml:"topicId"`
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// AccessTTL returns the access token lifetime.
func (c *AuthConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLHours) * time.Hour
}

// RefreshTTL returns the refresh token lifetime.
func (c *AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// LoadWithEnv loads <currEnv>.yaml through koanf and overlays environment variables.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	k := koanf.New(".")

	configFile, err := findConfigFile(currEnv, configPath...)
	if err != nil {
		return nil, err
	}

	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existing := k.Raw()

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			// SECRETKEY_ACCESS -> secretKey.access, matching the casing already present in YAML.
			return canonicalizeEnvKey(key, existing), value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func findConfigFile(currEnv string, configPath ...string) (string, error) {
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.Errorf("config file %s.yaml not found in any search path", currEnv)
}

// New loads, defaults and validates the service configuration.
func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Postgres != nil {
		// POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, ...
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.HTTP.MaxRequestBodySize) == "" {
		c.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = bcrypt.DefaultCost
	}
	if c.Auth.Cookie.RefreshName == "" {
		c.Auth.Cookie.RefreshName = defaultRefreshCookieName
	}
	if c.Auth.Cookie.AccessName == "" {
		c.Auth.Cookie.AccessName = defaultAccessCookieName
	}

	if c.Redis != nil && c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = defaultRedisKeyPrefix
	}

	if gh := c.GitHubOAuth; gh != nil {
		if len(gh.Scopes) == 0 {
			gh.Scopes = []string{defaultGitHubScope}
		}
		if gh.SuccessRedirect == "" {
			gh.SuccessRedirect = defaultGitHubSuccessRedirect
		}
		if gh.FailureRedirect == "" {
			gh.FailureRedirect = defaultGitHubFailureRedirect
		}
	}
}

// Validate rejects configurations the service cannot safely run with.
func (c *Config) Validate() error {
	if c.SecretKey.Access == "" || c.SecretKey.Refresh == "" {
		return errors.New("secretKey.access and secretKey.refresh must be provided")
	}
	if c.SecretKey.Access == c.SecretKey.Refresh {
		return errors.New("secretKey.access and secretKey.refresh must differ")
	}

	if c.Auth == nil {
		return errors.New("auth section is required")
	}
	if c.Auth.AccessTTLHours <= 0 {
		return errors.Errorf("auth.accessTTLHours must be positive, got %d", c.Auth.AccessTTLHours)
	}
	if c.Auth.RefreshTTLDays <= 0 {
		return errors.Errorf("auth.refreshTTLDays must be positive, got %d", c.Auth.RefreshTTLDays)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return errors.Errorf("auth.bcryptCost must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.Auth.PurgeInterval < 0 {
		return errors.New("auth.purgeInterval must not be negative")
	}

	if gh := c.GitHubOAuth; gh != nil {
		if gh.ClientID == "" || gh.ClientSecret == "" || gh.RedirectURL == "" {
			return errors.New("githubOAuth requires clientId, clientSecret and redirectUrl")
		}
	}

	if c.Redis != nil && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr is required when the redis section is present")
	}

	if c.Postgres == nil {
		return errors.New("postgres section is required")
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		matched, next, ok := findExistingSegment(current, segment)
		if !ok {
			canonical = append(canonical, segment)
			current = nil

			continue
		}

		canonical = append(canonical, matched)
		current = next
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// buildReplicasFromEnv reads POSTGRES_REPLICAS_{index}_{HOST,PORT,USERNAME,PASSWORD}.
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
