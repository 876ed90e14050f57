package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"srtvoice/internal/speech"
)

// CachedProvider serves repeated texts from the store. Cache failures are
// logged and fall through to the wrapped provider.
type CachedProvider struct {
	provider speech.NamedProvider
	store    *Store
}

func NewCachedProvider(provider speech.NamedProvider, store *Store) *CachedProvider {
	return &CachedProvider{provider: provider, store: store}
}

func (p *CachedProvider) CacheKey() string {
	return p.provider.CacheKey()
}

func (p *CachedProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	key := Key(p.provider.CacheKey(), text)

	data, ok, err := p.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Synthesis cache read failed", "error", err)
	}
	if ok {
		slog.Debug("Synthesis cache hit", "key", key[:12])
		return data, nil
	}

	data, err = p.provider.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := p.store.Put(ctx, key, p.provider.CacheKey(), text, data); err != nil {
		slog.Warn("Synthesis cache write failed", "error", err)
	}
	return data, nil
}

func Key(providerKey, text string) string {
	sum := sha256.Sum256([]byte(providerKey + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
