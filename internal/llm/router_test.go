package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adrianhensler/botterverse/internal/persona"
)

type fakeAdapter struct {
	name   string
	usable bool
	output string
	err    error
	calls  int
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Usable() bool { return f.usable }

func (f *fakeAdapter) Generate(_ context.Context, _ persona.Voice, _ Context, _ string, _ string) (string, Usage, error) {
	f.calls++
	return f.output, Usage{PromptTokens: 10, CompletionTokens: 5}, f.err
}

func testRouter(network *fakeAdapter) *ModelRouter {
	adapters := map[string]Adapter{
		LocalProviderName: NewLocalAdapterWithSeed(1),
	}
	if network != nil {
		adapters[network.name] = network
	}
	return NewModelRouter(RouterConfig{
		EconomyModel:     DefaultEconomyModel,
		PremiumModel:     DefaultPremiumModel,
		EconomyProvider:  OpenRouterProviderName,
		PremiumProvider:  OpenRouterProviderName,
		FallbackProvider: LocalProviderName,
		Adapters:         adapters,
	})
}

func casualPersona() persona.Persona {
	return persona.New("newswire", "Newswire", "urgent", []string{"breaking"}, 15*time.Minute)
}

func formalPersona() persona.Persona {
	return persona.New("theanalyst", "The Analyst", "formal, measured", []string{"markets"}, 45*time.Minute)
}

func TestTierSelectionFromTone(t *testing.T) {
	network := &fakeAdapter{name: OpenRouterProviderName, usable: true, output: "hi"}
	router := testRouter(network)

	tests := []struct {
		name  string
		voice persona.Voice
		tier  string
		model string
	}{
		{"casual tone routes economy", casualPersona(), TierEconomy, DefaultEconomyModel},
		{"formal tone routes premium", formalPersona(), TierPremium, DefaultPremiumModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := router.Route(tt.voice)
			if route.Tier != tt.tier {
				t.Fatalf("expected tier %s, got %s", tt.tier, route.Tier)
			}
			if route.Model != tt.model {
				t.Fatalf("expected model %s, got %s", tt.model, route.Model)
			}
			if route.Provider != OpenRouterProviderName {
				t.Fatalf("expected openrouter provider, got %s", route.Provider)
			}
		})
	}
}

func TestUnusableProviderSubstitutesLocal(t *testing.T) {
	network := &fakeAdapter{name: OpenRouterProviderName, usable: false}
	router := testRouter(network)

	route := router.Route(casualPersona())
	if route.Provider != LocalProviderName {
		t.Fatalf("expected local provider substitution, got %s", route.Provider)
	}
	if route.Model != LocalModelName {
		t.Fatalf("expected local model name, got %s", route.Model)
	}
}

func TestUnregisteredProviderFallsBack(t *testing.T) {
	router := testRouter(nil)

	route := router.Route(casualPersona())
	if route.Provider != LocalProviderName {
		t.Fatalf("expected fallback for unregistered provider, got %s", route.Provider)
	}

	adapter := router.AdapterFor("never-heard-of-it")
	if adapter.Name() != LocalProviderName {
		t.Fatalf("expected fallback adapter, got %s", adapter.Name())
	}
}

func TestFallbackRoutePreservesTier(t *testing.T) {
	network := &fakeAdapter{name: OpenRouterProviderName, usable: true, err: errors.New("down")}
	router := testRouter(network)

	primary := router.Route(formalPersona())
	fallback := router.FallbackRoute(primary)
	if fallback.Tier != TierPremium {
		t.Fatalf("expected premium tier preserved, got %s", fallback.Tier)
	}
	if fallback.Provider != LocalProviderName || fallback.Model != LocalModelName {
		t.Fatalf("expected local fallback route, got %+v", fallback)
	}
}

func TestEconomyRouteWithoutPersona(t *testing.T) {
	network := &fakeAdapter{name: OpenRouterProviderName, usable: true, output: "ok"}
	router := testRouter(network)

	route := router.EconomyRoute()
	if route.Tier != TierEconomy || route.Model != DefaultEconomyModel {
		t.Fatalf("unexpected economy route: %+v", route)
	}
}
