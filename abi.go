package chainutils

import (
	"sync"

	"golang.org/x/mod/semver"
)

// AbiLoader resolves and memoizes parsed contract ABIs per abi-kind. An
// adapter embeds one AbiLoader and delegates LoadAbi to it. Loading is
// lazy and write-once-read-many: the version participates in the resource
// lookup path but not in the cache key, matching the one-load-per-kind
// contract.
type AbiLoader struct {
	chain      ChainId
	source     AbiSource
	parse      func(raw []byte) (any, error)
	supported  []string // "vMAJOR.MINOR.PATCH", ascending
	mu         sync.Mutex
	cache      map[AbiKind]ParsedAbi
}

// AbiSource resolves the raw bytes for (version, chain, kind). Backed by
// an embed.FS resource tree in production adapters; swappable in tests.
type AbiSource interface {
	Read(version string, chain ChainId, kind AbiKind) ([]byte, error)
}

// NewAbiLoader constructs a loader for chain, backed by source, able to
// parse raw ABI JSON with parse, and aware of the supported protocol
// version set (ascending order; the latest is its max).
func NewAbiLoader(chain ChainId, source AbiSource, parse func([]byte) (any, error), supportedVersions []string) *AbiLoader {
	return &AbiLoader{
		chain:     chain,
		source:    source,
		parse:     parse,
		supported: supportedVersions,
		cache:     make(map[AbiKind]ParsedAbi),
	}
}

// LatestVersion returns the maximum of the supported protocol version set.
func (l *AbiLoader) LatestVersion() string {
	latest := ""
	for _, v := range l.supported {
		if latest == "" || semver.Compare(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}

// SupportsVersion reports whether v is a member of the supported set.
func (l *AbiLoader) SupportsVersion(v string) bool {
	for _, s := range l.supported {
		if s == v {
			return true
		}
	}
	return false
}

// Load resolves ref against the version directory ref.Version (defaulting
// to the latest supported version when ref.Version is empty), memoized by
// ref.Kind alone: a second Load of the same kind returns the cached value
// without touching AbiSource again, regardless of the version requested.
func (l *AbiLoader) Load(ref ContractAbiRef) (ParsedAbi, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.cache[ref.Kind]; ok {
		return cached, nil
	}

	version := ref.Version
	if version == "" {
		version = l.LatestVersion()
	}

	raw, err := l.source.Read(version, l.chain, ref.Kind)
	if err != nil {
		return ParsedAbi{}, newErr(ErrBlockchainUtilities, "unable to load a contract ABI", err)
	}
	impl, err := l.parse(raw)
	if err != nil {
		return ParsedAbi{}, newErr(ErrBlockchainUtilities, "unable to load a contract ABI", err)
	}

	parsed := ParsedAbi{Kind: ref.Kind, Raw: raw, Impl: impl}
	l.cache[ref.Kind] = parsed
	return parsed, nil
}
