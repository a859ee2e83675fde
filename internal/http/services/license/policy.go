package license

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/licensegate/internal/cache"
	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

const policyCacheKey = "version_policy:active"

// PolicyProvider devuelve la política de versión activa.
type PolicyProvider interface {
	// Active retorna nil, nil si no hay política activa.
	Active(ctx context.Context) (*licensing.Policy, error)
	// Invalidate descarta la copia cacheada.
	Invalidate(ctx context.Context)
}

// policyEntry es lo que se guarda en cache. Present=false cachea la
// ausencia de política.
type policyEntry struct {
	Present        bool   `json:"present"`
	MinimumVersion string `json:"minimumVersion,omitempty"`
	CurrentVersion string `json:"currentVersion,omitempty"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
}

func (e policyEntry) policy() *licensing.Policy {
	if !e.Present {
		return nil
	}
	return &licensing.Policy{
		MinimumVersion: e.MinimumVersion,
		CurrentVersion: e.CurrentVersion,
		DownloadURL:    e.DownloadURL,
	}
}

type cachedPolicy struct {
	repo  repository.PolicyRepository
	cache cache.Client
	ttl   time.Duration
	sf    singleflight.Group
}

// NewPolicyProvider lee la política a través de c. Con c nil o ttl 0 cada
// llamada va al store (colapsadas con singleflight).
func NewPolicyProvider(repo repository.PolicyRepository, c cache.Client, ttl time.Duration) PolicyProvider {
	if ttl <= 0 {
		c = nil
	}
	return &cachedPolicy{repo: repo, cache: c, ttl: ttl}
}

func (p *cachedPolicy) Active(ctx context.Context) (*licensing.Policy, error) {
	log := logger.From(ctx).With(logger.Component("license.policy"))

	if p.cache != nil {
		raw, err := p.cache.Get(ctx, policyCacheKey)
		switch {
		case err == nil:
			var e policyEntry
			if jerr := json.Unmarshal([]byte(raw), &e); jerr == nil {
				return e.policy(), nil
			}
			log.Warn("policy cache entry corrupt")
		case !cache.IsNotFound(err):
			log.Warn("policy cache get failed", logger.Err(err))
		}
	}

	v, err, _ := p.sf.Do(policyCacheKey, func() (any, error) {
		vp, err := p.repo.GetActivePolicy(ctx)
		if err != nil && !repository.IsNotFound(err) {
			return nil, fmt.Errorf("get active policy: %w", err)
		}
		e := policyEntry{}
		if vp != nil {
			e = policyEntry{
				Present:        true,
				MinimumVersion: vp.MinimumVersion,
				CurrentVersion: vp.CurrentVersion,
			}
			if vp.DownloadURL != nil {
				e.DownloadURL = *vp.DownloadURL
			}
		}
		if p.cache != nil {
			if b, jerr := json.Marshal(e); jerr == nil {
				if serr := p.cache.Set(ctx, policyCacheKey, string(b), p.ttl); serr != nil {
					log.Warn("policy cache set failed", logger.Err(serr))
				}
			}
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(policyEntry).policy(), nil
}

func (p *cachedPolicy) Invalidate(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, policyCacheKey); err != nil {
		logger.From(ctx).Warn("policy cache delete failed", logger.Err(err))
	}
}
