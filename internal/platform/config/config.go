package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultProductPrefix     = "products/"
	defaultGalleryPrefix     = "uploadedImages/"
	defaultUploadConcurrency = 4
	defaultMaxUploadBytes    = 10 << 20
	defaultMaxUploadFiles    = 10
	defaultEnvironment       = "local"
	defaultAdminRole         = "admin"
	defaultRoleClaim         = "role"
	defaultReplayTTL         = 24 * time.Hour
	defaultReplayCollection  = "idempotencyKeys"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Storage   StorageConfig
	Uploads   UploadConfig
	Events    EventConfig
	Replay    ReplayConfig
	Security  SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig describes the bucket and key layout for catalog media.
type StorageConfig struct {
	Bucket        string
	ProductPrefix string
	GalleryPrefix string
	EmulatorHost  string
}

// UploadConfig bounds multipart image uploads.
type UploadConfig struct {
	MaxConcurrent int
	MaxFileBytes  int64
	MaxFiles      int
}

// EventConfig controls catalog change notifications over Pub/Sub.
type EventConfig struct {
	Enabled bool
	TopicID string
}

// ReplayConfig controls Idempotency-Key handling on admin writes.
type ReplayConfig struct {
	Enabled    bool
	RequireKey bool
	TTL        time.Duration
	Collection string
}

// SecurityConfig groups admin gate settings.
type SecurityConfig struct {
	Environment string
	AdminRole   string
	RoleClaim   string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved to empty values.
type MissingSecretsError struct {
	names []string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// RedactedNames returns hashed secret identifiers safe for logs.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		sum := sha256.Sum256([]byte(name))
		out = append(out, hex.EncodeToString(sum[:8]))
	}
	sort.Strings(out)
	return out
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

func defaultLoaderOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over the OS environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks config fields (e.g. "Firebase.CredentialsJSON") that must resolve to a value.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// EnvironmentValues returns the effective environment after applying the Load precedence
// (dotenv < OS env < explicit map). main uses it to configure the secret fetcher before Load runs.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := defaultLoaderOptions()
	for _, opt := range opts {
		opt(&options)
	}

	values, err := readDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]string{}
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[key] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// Load assembles the application configuration from defaults, .env overrides, environment
// variables, and Secret Manager references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultLoaderOptions()
	for _, opt := range opts {
		opt(&options)
	}

	dotEnv, err := readDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnv[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "CATALOG_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "CATALOG_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "CATALOG_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "CATALOG_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "CATALOG_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "CATALOG_FIREBASE_CREDENTIALS_FILE", ""),
			CredentialsJSON: stringWithDefault(lookup, "CATALOG_FIREBASE_CREDENTIALS_JSON", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "CATALOG_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "CATALOG_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			Bucket:        stringWithDefault(lookup, "CATALOG_STORAGE_BUCKET", ""),
			ProductPrefix: prefixWithDefault(lookup, "CATALOG_STORAGE_PRODUCT_PREFIX", defaultProductPrefix),
			GalleryPrefix: prefixWithDefault(lookup, "CATALOG_STORAGE_GALLERY_PREFIX", defaultGalleryPrefix),
			EmulatorHost:  stringWithDefault(lookup, "CATALOG_STORAGE_EMULATOR_HOST", ""),
		},
		Uploads: UploadConfig{
			MaxConcurrent: intWithDefault(lookup, "CATALOG_UPLOAD_MAX_CONCURRENT", defaultUploadConcurrency),
			MaxFileBytes:  int64(intWithDefault(lookup, "CATALOG_UPLOAD_MAX_FILE_BYTES", defaultMaxUploadBytes)),
			MaxFiles:      intWithDefault(lookup, "CATALOG_UPLOAD_MAX_FILES", defaultMaxUploadFiles),
		},
		Events: EventConfig{
			Enabled: boolWithDefault(lookup, "CATALOG_EVENTS_ENABLED", false),
			TopicID: stringWithDefault(lookup, "CATALOG_EVENTS_TOPIC", "catalog-events"),
		},
		Replay: ReplayConfig{
			Enabled:    boolWithDefault(lookup, "CATALOG_IDEMPOTENCY_ENABLED", true),
			RequireKey: boolWithDefault(lookup, "CATALOG_IDEMPOTENCY_REQUIRE_KEY", false),
			TTL:        durationWithDefault(lookup, "CATALOG_IDEMPOTENCY_TTL", defaultReplayTTL),
			Collection: stringWithDefault(lookup, "CATALOG_IDEMPOTENCY_COLLECTION", defaultReplayCollection),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "CATALOG_SECURITY_ENVIRONMENT", defaultEnvironment)),
			AdminRole:   strings.ToLower(stringWithDefault(lookup, "CATALOG_SECURITY_ADMIN_ROLE", defaultAdminRole)),
			RoleClaim:   stringWithDefault(lookup, "CATALOG_SECURITY_ROLE_CLAIM", defaultRoleClaim),
		},
	}

	// Firestore project defaults to the Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Firebase.CredentialsJSON", &cfg.Firebase.CredentialsJSON},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	var missing []string
	for _, name := range options.requiredSecrets {
		name = strings.TrimSpace(name)
		if name != "" && resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, &MissingSecretsError{names: missing}
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string
	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Storage.Bucket == "" {
		missing = append(missing, "Storage.Bucket")
	}
	if cfg.Storage.ProductPrefix == cfg.Storage.GalleryPrefix {
		missing = append(missing, "Storage.GalleryPrefix")
	}
	if cfg.Uploads.MaxConcurrent <= 0 {
		missing = append(missing, "Uploads.MaxConcurrent")
	}
	if cfg.Uploads.MaxFileBytes <= 0 {
		missing = append(missing, "Uploads.MaxFileBytes")
	}
	if cfg.Uploads.MaxFiles <= 0 {
		missing = append(missing, "Uploads.MaxFiles")
	}
	if cfg.Events.Enabled && strings.TrimSpace(cfg.Events.TopicID) == "" {
		missing = append(missing, "Events.TopicID")
	}
	if cfg.Replay.Enabled && cfg.Replay.TTL <= 0 {
		missing = append(missing, "Replay.TTL")
	}
	if cfg.Security.AdminRole == "" {
		missing = append(missing, "Security.AdminRole")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func readDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func prefixWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	value := strings.Trim(stringWithDefault(lookup, key, fallback), "/")
	if value == "" {
		return ""
	}
	return value + "/"
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
