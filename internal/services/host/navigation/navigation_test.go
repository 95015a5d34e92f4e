package navigation

import (
	"context"
	"testing"

	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/registry/registrytest"
)

func TestCurrentModule(t *testing.T) {
	t.Parallel()

	reg := registrytest.NewRegistry(t, &registrytest.Loader{})
	tests := map[string]registry.ModuleKey{
		"/":                      registry.Home,
		"/module-one":            registry.ModuleOne,
		"/module-one/":           registry.ModuleOne,
		"/module-one/sort-users": registry.ModuleOne,
		"/module-two":            registry.ModuleTwo,
		"/unknown":               registry.Home,
		"/unknown/sort-users":    registry.Home,
	}
	for path, want := range tests {
		if got := CurrentModule(reg, path); got != want {
			t.Fatalf("CurrentModule(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestCurrentModuleIgnoresTrailingSlash(t *testing.T) {
	t.Parallel()

	reg := registrytest.NewRegistry(t, &registrytest.Loader{})
	for _, key := range reg.Keys() {
		bare := CurrentModule(reg, "/"+string(key))
		slashed := CurrentModule(reg, "/"+string(key)+"/")
		if bare != key || slashed != key {
			t.Fatalf("CurrentModule(%q) = %q / %q, want %q for both", key, bare, slashed, key)
		}
	}
}

func TestCurrentAction(t *testing.T) {
	t.Parallel()

	reg := registrytest.NewRegistry(t, &registrytest.Loader{})
	tests := map[string]string{
		"/":                            "",
		"":                             "",
		"/module-one":                  "",
		"/module-one/":                 "",
		"/module-one/sort-users":       "sort-users",
		"//module-one//sort-users/":    "sort-users",
		"/module-two/add-card/details": "add-card",
		"/unknown/sort-users":          "",
		"/home/sort-users":             "",
	}
	for path, want := range tests {
		if got := CurrentAction(reg, path); got != want {
			t.Fatalf("CurrentAction(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDeriveHomeHasNoAction(t *testing.T) {
	t.Parallel()

	reg := registrytest.NewRegistry(t, &registrytest.Loader{})
	state := Derive(reg, "/unknown")
	if !state.IsHome() || state.Action != "" {
		t.Fatalf("Derive(/unknown) = %+v, want home with no action", state)
	}
	if got := Derive(nil, "/module-one/sort-users"); !got.IsHome() {
		t.Fatalf("Derive(nil resolver) = %+v, want home", got)
	}
}

func TestActionPathRoundTripsThroughDerive(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	reg := registrytest.NewRegistry(t, loader)
	for _, key := range reg.Keys() {
		actions, err := reg.LoadActionsForModule(context.Background(), key)
		if err != nil {
			t.Fatalf("LoadActionsForModule(%q) error = %v", key, err)
		}
		for _, action := range actions {
			path := ActionPath(key, action.Slug)
			got := Derive(reg, path)
			if got.Module != key || got.Action != action.Slug {
				t.Fatalf("Derive(%q) = %+v, want (%q, %q)", path, got, key, action.Slug)
			}
		}
	}
}

func TestModulePathAndSubpath(t *testing.T) {
	t.Parallel()

	if got := ModulePath(registry.Home); got != "/" {
		t.Fatalf("ModulePath(home) = %q, want %q", got, "/")
	}
	if got := ActionPath(registry.ModuleTwo, "add card"); got != "/module-two/add%20card" {
		t.Fatalf("ActionPath() = %q, want %q", got, "/module-two/add%20card")
	}
	tests := map[string]string{
		"/module-one":                 "/",
		"/module-one/":                "/",
		"/module-one/sort-users":      "/sort-users",
		"/module-one/sort-users/desc": "/sort-users/desc",
		"/elsewhere":                  "/",
	}
	for path, want := range tests {
		if got := Subpath(registry.ModuleOne, path); got != want {
			t.Fatalf("Subpath(%q) = %q, want %q", path, got, want)
		}
	}
}
