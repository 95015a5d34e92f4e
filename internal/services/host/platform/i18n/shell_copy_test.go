package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestShellReturnsPortugueseCopyForPTBR(t *testing.T) {
	t.Parallel()

	loc := Shell(language.MustParse("pt-BR"))
	if loc.Home != "Início" {
		t.Fatalf("Home = %q", loc.Home)
	}
	if got := loc.LoadFailed("Module Two"); got != "Module Two falhou ao carregar." {
		t.Fatalf("LoadFailed = %q", got)
	}
	if loc.Lang != "pt-BR" {
		t.Fatalf("Lang = %q, want pt-BR", loc.Lang)
	}
}

func TestShellFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	loc := Shell(language.Japanese)
	if loc.Title != "Micro-Frontend Host" {
		t.Fatalf("Title = %q", loc.Title)
	}
	if loc.SidebarHint != "Select a module to see available actions (e.g., dashboard or view)." {
		t.Fatalf("SidebarHint = %q", loc.SidebarHint)
	}
	if got := loc.LoadFailed("Module One"); got != "Module One failed to load." {
		t.Fatalf("LoadFailed = %q", got)
	}
	if got := loc.Text("missing.key", "fallback"); got != "fallback" {
		t.Fatalf("Text(missing) = %q", got)
	}
}

func TestZeroShellCopyUsesFallbacks(t *testing.T) {
	t.Parallel()

	var loc ShellCopy
	if got := loc.LoadFailed("Module One"); got != "Module One failed to load." {
		t.Fatalf("LoadFailed = %q", got)
	}
}
