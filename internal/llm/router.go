package llm

import (
	"strings"

	"github.com/adrianhensler/botterverse/internal/persona"
	"github.com/adrianhensler/botterverse/pkg/config"
)

const (
	TierEconomy = "economy"
	TierPremium = "premium"

	DefaultEconomyModel = "openai/gpt-4o-mini"
	DefaultPremiumModel = "anthropic/claude-3.5-haiku"
)

// Route is a resolved (tier, provider, model) triple. Computed per call,
// never persisted.
type Route struct {
	Tier     string
	Provider string
	Model    string
}

// RouterConfig wires adapters and per-tier settings into a ModelRouter.
type RouterConfig struct {
	EconomyModel     string
	PremiumModel     string
	EconomyProvider  string
	PremiumProvider  string
	FallbackProvider string
	Adapters         map[string]Adapter
}

// ModelRouter maps a persona to a (provider, model) pair and hides provider
// availability behind the fallback provider.
type ModelRouter struct {
	economyModel     string
	premiumModel     string
	economyProvider  string
	premiumProvider  string
	fallbackProvider string
	adapters         map[string]Adapter
}

func NewModelRouter(cfg RouterConfig) *ModelRouter {
	return &ModelRouter{
		economyModel:     cfg.EconomyModel,
		premiumModel:     cfg.PremiumModel,
		economyProvider:  cfg.EconomyProvider,
		premiumProvider:  cfg.PremiumProvider,
		fallbackProvider: cfg.FallbackProvider,
		adapters:         cfg.Adapters,
	}
}

// NewDefaultRouter builds the standard router: OpenRouter for both tiers
// with the local adapter as fallback, models overridable via env.
func NewDefaultRouter() *ModelRouter {
	adapters := map[string]Adapter{
		OpenRouterProviderName: NewOpenRouterAdapter(OpenRouterConfig{
			APIKey: config.GetEnv("OPENROUTER_API_KEY", ""),
			APIURL: config.GetEnv("OPENROUTER_API_URL", ""),
		}),
		LocalProviderName: NewLocalAdapter(),
	}
	return NewModelRouter(RouterConfig{
		EconomyModel:     config.GetEnv("BOTTERVERSE_ECONOMY_MODEL", DefaultEconomyModel),
		PremiumModel:     config.GetEnv("BOTTERVERSE_PREMIUM_MODEL", DefaultPremiumModel),
		EconomyProvider:  config.GetEnv("BOTTERVERSE_ECONOMY_PROVIDER", OpenRouterProviderName),
		PremiumProvider:  config.GetEnv("BOTTERVERSE_PREMIUM_PROVIDER", OpenRouterProviderName),
		FallbackProvider: LocalProviderName,
		Adapters:         adapters,
	})
}

// Route resolves the tier from persona tone, then the provider and model
// for that tier. An unusable provider is silently replaced by the fallback.
func (r *ModelRouter) Route(voice persona.Voice) Route {
	tier := r.selectTier(voice)
	requested, model := r.economyProvider, r.economyModel
	if tier == TierPremium {
		requested, model = r.premiumProvider, r.premiumModel
	}
	provider := r.resolveProvider(requested)
	if provider == LocalProviderName {
		model = LocalModelName
	}
	return Route{Tier: tier, Provider: provider, Model: model}
}

// EconomyRoute resolves the economy tier without a persona, for utility
// calls like tool selection and reply decisions.
func (r *ModelRouter) EconomyRoute() Route {
	provider := r.resolveProvider(r.economyProvider)
	model := r.economyModel
	if provider == LocalProviderName {
		model = LocalModelName
	}
	return Route{Tier: TierEconomy, Provider: provider, Model: model}
}

// FallbackRoute recomputes a route forcing the fallback provider while
// keeping the primary route's tier.
func (r *ModelRouter) FallbackRoute(primary Route) Route {
	model := r.economyModel
	if primary.Tier == TierPremium {
		model = r.premiumModel
	}
	if r.fallbackProvider == LocalProviderName {
		model = LocalModelName
	}
	return Route{Tier: primary.Tier, Provider: r.fallbackProvider, Model: model}
}

// AdapterFor returns the adapter registered under the provider name, or the
// fallback adapter when unregistered.
func (r *ModelRouter) AdapterFor(providerName string) Adapter {
	if adapter, ok := r.adapters[providerName]; ok {
		return adapter
	}
	return r.adapters[r.fallbackProvider]
}

func (r *ModelRouter) resolveProvider(requested string) string {
	adapter, ok := r.adapters[requested]
	if !ok || !adapter.Usable() {
		return r.fallbackProvider
	}
	return requested
}

func (r *ModelRouter) selectTier(voice persona.Voice) string {
	tone := strings.ToLower(voice.Tone())
	if strings.Contains(tone, "formal") || strings.Contains(tone, "professional") {
		return TierPremium
	}
	return TierEconomy
}
