package governance

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultCacheEntries = 1024

// ParsedConnectionString is a normalized key/value view of a raw connection
// string. Keys are lower-cased and unique (last occurrence wins). Credentials
// are deliberately not carried in the view; callers needing them hold the raw
// string themselves.
type ParsedConnectionString struct {
	raw          string
	values       map[string]string
	memoryBacked bool
}

// Get returns the value for a key, case-insensitively.
func (p ParsedConnectionString) Get(key string) (string, bool) {
	value, ok := p.values[strings.ToLower(key)]
	return value, ok
}

// Keys returns the normalized keys in sorted order.
func (p ParsedConnectionString) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for key := range p.values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// KeyHash returns a stable hash of the raw connection string, suitable for
// identifying the target in errors and logs without exposing the string.
func (p ParsedConnectionString) KeyHash() uint64 {
	return xxhash.Sum64String(p.raw)
}

// MemoryBacked reports whether the target is an in-memory database.
func (p ParsedConnectionString) MemoryBacked() bool {
	return p.memoryBacked
}

// TargetDescriptor derives the descriptor consumed by ResolveMode.
func (p ParsedConnectionString) TargetDescriptor() TargetDescriptor {
	return TargetDescriptor{
		IsMemoryBacked:      p.memoryBacked,
		RawConnectionString: p.raw,
	}
}

// NormalizationCache memoizes parsed key/value views of connection strings.
// It is an explicit, injectable object owned by a composition root, bounded in
// size and optionally by TTL; the entries are small but connection strings can
// arrive from userland in unbounded variety, so an unbounded memo table would
// be a latent memory-growth risk.
type NormalizationCache struct {
	entries *expirable.LRU[string, ParsedConnectionString]
}

// NewNormalizationCache creates a cache bounded to maxEntries with the given
// TTL. A maxEntries <= 0 falls back to the default bound; a zero ttl disables
// expiry.
func NewNormalizationCache(maxEntries int, ttl time.Duration) *NormalizationCache {
	return NewObservedNormalizationCache(maxEntries, ttl, nil)
}

// NewObservedNormalizationCache is NewNormalizationCache with an eviction
// observer, called once per entry evicted by the size bound or the TTL.
func NewObservedNormalizationCache(maxEntries int, ttl time.Duration, onEvict func(raw string)) *NormalizationCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}

	var evictCallback expirable.EvictCallback[string, ParsedConnectionString]
	if onEvict != nil {
		evictCallback = func(key string, _ ParsedConnectionString) {
			onEvict(key)
		}
	}

	return &NormalizationCache{
		entries: expirable.NewLRU[string, ParsedConnectionString](maxEntries, evictCallback, ttl),
	}
}

// Parse returns the normalized view of a raw connection string, memoized for
// repeated lookups of the same string.
func (c *NormalizationCache) Parse(raw string) (ParsedConnectionString, error) {
	if raw == "" {
		return ParsedConnectionString{}, ErrEmptyConnectionString
	}

	if cached, ok := c.entries.Get(raw); ok {
		return cached, nil
	}

	parsed, err := normalizeConnectionString(raw)
	if err != nil {
		return ParsedConnectionString{}, err
	}

	c.entries.Add(raw, parsed)

	return parsed, nil
}

// Len returns the current number of cached entries.
func (c *NormalizationCache) Len() int {
	return c.entries.Len()
}

// Purge drops all cached entries.
func (c *NormalizationCache) Purge() {
	c.entries.Purge()
}

// normalizeConnectionString dispatches on the connection string shape:
// postgres URLs and keyword DSNs go through pgconn, mysql DSNs through the
// mysql driver parser, sqlite file URIs and ADO-style "key=value;" pairs are
// handled directly.
func normalizeConnectionString(raw string) (ParsedConnectionString, error) {
	trimmed := strings.TrimSpace(raw)

	var values map[string]string
	var err error

	switch {
	case trimmed == ":memory:":
		values = map[string]string{"data source": ":memory:"}

	case strings.HasPrefix(trimmed, "file:"):
		values = parseSQLiteURI(trimmed)

	case strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://"):
		values, err = parsePostgres(trimmed)

	case strings.Contains(trimmed, "@tcp(") || strings.Contains(trimmed, "@unix("):
		values, err = parseMySQL(trimmed)

	case strings.Contains(trimmed, ";"):
		values = parseKeyValuePairs(trimmed, ";")

	case strings.Contains(trimmed, "="):
		// Space-separated keyword form, e.g. "host=localhost dbname=app".
		// pgconn knows this grammar, including quoting.
		values, err = parsePostgres(trimmed)

	default:
		return ParsedConnectionString{}, errors.Join(ErrUnparsableConnectionString, errors.New("unrecognized connection string shape"))
	}

	if err != nil {
		return ParsedConnectionString{}, errors.Join(ErrUnparsableConnectionString, err)
	}

	return ParsedConnectionString{
		raw:          raw,
		values:       values,
		memoryBacked: detectMemoryBacked(raw, values),
	}, nil
}

func parsePostgres(raw string) (map[string]string, error) {
	config, err := pgconn.ParseConfig(raw)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(config.RuntimeParams)+4)

	for key, value := range config.RuntimeParams {
		values[strings.ToLower(key)] = value
	}

	putNonEmpty(values, "host", config.Host)
	putNonEmpty(values, "user", config.User)
	putNonEmpty(values, "dbname", config.Database)

	if config.Port != 0 {
		values["port"] = strconv.Itoa(int(config.Port))
	}

	return values, nil
}

func parseMySQL(raw string) (map[string]string, error) {
	config, err := mysql.ParseDSN(raw)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(config.Params)+4)

	for key, value := range config.Params {
		values[strings.ToLower(key)] = value
	}

	putNonEmpty(values, "addr", config.Addr)
	putNonEmpty(values, "net", config.Net)
	putNonEmpty(values, "user", config.User)
	putNonEmpty(values, "dbname", config.DBName)

	return values, nil
}

// parseSQLiteURI handles "file:path?param=value&..." forms. The path segment
// is kept under "data source" to match the ADO-style key used elsewhere.
func parseSQLiteURI(raw string) map[string]string {
	values := make(map[string]string, 4)

	pathAndQuery := strings.TrimPrefix(raw, "file:")
	path := pathAndQuery

	if idx := strings.IndexByte(pathAndQuery, '?'); idx >= 0 {
		path = pathAndQuery[:idx]

		for _, pair := range strings.Split(pathAndQuery[idx+1:], "&") {
			key, value, found := strings.Cut(pair, "=")
			if !found || key == "" {
				continue
			}

			values[strings.ToLower(key)] = value
		}
	}

	putNonEmpty(values, "data source", path)

	return values
}

func parseKeyValuePairs(raw string, separator string) map[string]string {
	values := make(map[string]string, 8)

	for _, pair := range strings.Split(raw, separator) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}

		values[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	return values
}

func putNonEmpty(values map[string]string, key, value string) {
	if value != "" {
		values[key] = value
	}
}

func detectMemoryBacked(raw string, values map[string]string) bool {
	if strings.Contains(raw, ":memory:") {
		return true
	}

	if mode, ok := values["mode"]; ok && strings.EqualFold(mode, "memory") {
		return true
	}

	if source, ok := values["data source"]; ok && strings.Contains(source, ":memory:") {
		return true
	}

	return false
}
