package resolve

import (
	"context"
	"fmt"
	"testing"
	"time"

	"llmconsole/internal/apierr"
	"llmconsole/internal/cache"
	"llmconsole/internal/db"
	"llmconsole/internal/models"
	"llmconsole/internal/store"
	"llmconsole/internal/upstream"
)

type creds bool

func (c creds) Configured() bool { return bool(c) }

type fixture struct {
	sessions *store.Sessions
	profiles *store.Profiles
	catalog  *store.Catalog
	messages *store.Messages
	resolver *Resolver
}

func newFixture(t *testing.T, configured bool) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:resolve_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	f := &fixture{
		sessions: store.NewSessions(conn),
		profiles: store.NewProfiles(conn, cache.New("profiles", time.Minute)),
		catalog:  store.NewCatalog(conn, cache.New("models", time.Minute)),
		messages: store.NewMessages(conn),
	}
	f.resolver = NewResolver(f.sessions, f.profiles, f.catalog, f.messages, creds(configured))
	return f
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func TestResolveDefaults(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	session, errCreate := f.sessions.Create(ctx, models.SessionTypeChat, nil, nil)
	if errCreate != nil {
		t.Fatalf("create session: %v", errCreate)
	}

	resolved, errResolve := f.resolver.Resolve(ctx, Request{SessionID: session.ID, ModelID: "openai/gpt-4o-mini"})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if resolved.Request.Temperature != models.DefaultTemperature {
		t.Fatalf("temperature = %g, want default %g", resolved.Request.Temperature, models.DefaultTemperature)
	}
	if resolved.Request.MaxTokens != models.DefaultMaxTokens {
		t.Fatalf("max_tokens = %d, want default %d", resolved.Request.MaxTokens, models.DefaultMaxTokens)
	}
	if resolved.Request.Model != "openai/gpt-4o-mini" {
		t.Fatalf("model = %q, want pass-through", resolved.Request.Model)
	}
	if resolved.CatalogModelID != nil {
		t.Fatal("unknown model must not resolve to a catalog id")
	}
}

func TestResolvePrecedence(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	profile, errProfile := f.profiles.Create(ctx, store.ProfileInput{
		Name:        "creative",
		Temperature: floatPtr(0.9),
		MaxTokens:   intPtr(512),
	})
	if errProfile != nil {
		t.Fatalf("create profile: %v", errProfile)
	}
	session, errSession := f.sessions.Create(ctx, models.SessionTypeChat, nil, &profile.ID)
	if errSession != nil {
		t.Fatalf("create session: %v", errSession)
	}

	// Explicit request value beats the profile; the profile fills the rest.
	resolved, errResolve := f.resolver.Resolve(ctx, Request{
		SessionID:   session.ID,
		ModelID:     "anthropic/claude-sonnet",
		Temperature: floatPtr(0.2),
	})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if resolved.Request.Temperature != 0.2 {
		t.Fatalf("temperature = %g, want explicit 0.2", resolved.Request.Temperature)
	}
	if resolved.Request.MaxTokens != 512 {
		t.Fatalf("max_tokens = %d, want profile 512", resolved.Request.MaxTokens)
	}
	if resolved.ProfileID == nil || *resolved.ProfileID != profile.ID {
		t.Fatalf("profile id = %v, want session default %d", resolved.ProfileID, profile.ID)
	}
}

func TestResolveProfileOverride(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	sessionProfile, _ := f.profiles.Create(ctx, store.ProfileInput{Name: "default", Temperature: floatPtr(0.5)})
	requestProfile, _ := f.profiles.Create(ctx, store.ProfileInput{Name: "override", Temperature: floatPtr(1.5)})
	session, _ := f.sessions.Create(ctx, models.SessionTypeChat, nil, &sessionProfile.ID)

	resolved, errResolve := f.resolver.Resolve(ctx, Request{
		SessionID: session.ID,
		ModelID:   "m",
		ProfileID: &requestProfile.ID,
	})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if resolved.Request.Temperature != 1.5 {
		t.Fatalf("temperature = %g, want request profile 1.5", resolved.Request.Temperature)
	}
}

func TestResolveSystemPromptAndHistory(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	profile, _ := f.profiles.Create(ctx, store.ProfileInput{
		Name:         "brief",
		SystemPrompt: strPtr("Be brief."),
	})
	session, _ := f.sessions.Create(ctx, models.SessionTypeChat, nil, &profile.ID)
	if _, errAppend := f.messages.Append(ctx, session.ID, models.RoleUser, "hello"); errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}
	if _, errAppend := f.messages.Append(ctx, session.ID, models.RoleAssistant, "hi"); errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}

	resolved, errResolve := f.resolver.Resolve(ctx, Request{SessionID: session.ID, ModelID: "m"})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	msgs := resolved.Request.Messages
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want system + 2 history", len(msgs))
	}
	if msgs[0].Role != models.RoleSystem || msgs[0].Content != "Be brief." {
		t.Fatalf("first message = %+v, want injected system prompt", msgs[0])
	}
	if msgs[1].Content != "hello" || msgs[2].Content != "hi" {
		t.Fatalf("history out of order: %+v", msgs[1:])
	}
}

func TestResolvePresetSuffix(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	cases := []struct {
		name   string
		preset string
		model  string
		want   string
	}{
		{"plain tag", "fast", "openai/gpt-4o", "openai/gpt-4o@preset/fast"},
		{"tag already prefixed", "@preset/fast", "openai/gpt-4o", "openai/gpt-4o@preset/fast"},
		{"model already carries preset", "fast", "openai/gpt-4o@preset/other", "openai/gpt-4o@preset/other"},
		{"blank tag", "  ", "openai/gpt-4o", "openai/gpt-4o"},
	}
	for _, tc := range cases {
		profile, errProfile := f.profiles.Create(ctx, store.ProfileInput{
			Name:             "preset " + tc.name,
			OpenRouterPreset: strPtr(tc.preset),
		})
		if errProfile != nil {
			t.Fatalf("%s: create profile: %v", tc.name, errProfile)
		}
		session, _ := f.sessions.Create(ctx, models.SessionTypeChat, nil, &profile.ID)

		resolved, errResolve := f.resolver.Resolve(ctx, Request{SessionID: session.ID, ModelID: tc.model})
		if errResolve != nil {
			t.Fatalf("%s: resolve: %v", tc.name, errResolve)
		}
		if resolved.Request.Model != tc.want {
			t.Fatalf("%s: model = %q, want %q", tc.name, resolved.Request.Model, tc.want)
		}
	}
}

func TestResolveCatalogModel(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, errSync := f.catalog.Sync(ctx, []upstream.CatalogModel{
		{OpenRouterID: "openai/gpt-4o", Name: "GPT-4o"},
	}); errSync != nil {
		t.Fatalf("sync: %v", errSync)
	}
	entry, errGet := f.catalog.GetByAnyID(ctx, "openai/gpt-4o")
	if errGet != nil {
		t.Fatalf("get model: %v", errGet)
	}
	session, _ := f.sessions.Create(ctx, models.SessionTypeChat, nil, nil)

	// Resolving by local id and by upstream id lands on the same entry.
	for _, id := range []string{entry.ID, entry.OpenRouterID} {
		resolved, errResolve := f.resolver.Resolve(ctx, Request{SessionID: session.ID, ModelID: id})
		if errResolve != nil {
			t.Fatalf("resolve %q: %v", id, errResolve)
		}
		if resolved.Request.Model != "openai/gpt-4o" {
			t.Fatalf("upstream model = %q, want openrouter id", resolved.Request.Model)
		}
		if resolved.CatalogModelID == nil || *resolved.CatalogModelID != entry.ID {
			t.Fatalf("catalog id = %v, want %q", resolved.CatalogModelID, entry.ID)
		}
	}
}

func TestResolveFailures(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, errResolve := f.resolver.Resolve(ctx, Request{SessionID: "missing", ModelID: "m"})
	typed, ok := apierr.As(errResolve)
	if !ok || typed.Code != apierr.CodeSessionNotFound {
		t.Fatalf("missing session: got %v, want SESSION_NOT_FOUND", errResolve)
	}

	session, _ := f.sessions.Create(ctx, models.SessionTypeChat, nil, nil)
	badProfile := uint64(9999)
	_, errResolve = f.resolver.Resolve(ctx, Request{SessionID: session.ID, ModelID: "m", ProfileID: &badProfile})
	typed, ok = apierr.As(errResolve)
	if !ok || typed.Code != apierr.CodeProfileNotFound {
		t.Fatalf("missing profile: got %v, want PROFILE_NOT_FOUND", errResolve)
	}
}

func TestResolveMissingCredential(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	session, _ := f.sessions.Create(ctx, models.SessionTypeChat, nil, nil)
	_, errResolve := f.resolver.Resolve(ctx, Request{SessionID: session.ID, ModelID: "m"})
	typed, ok := apierr.As(errResolve)
	if !ok || typed.Code != apierr.CodeMissingAPIKey {
		t.Fatalf("got %v, want MISSING_API_KEY", errResolve)
	}
	if typed.Status != 400 {
		t.Fatalf("status = %d, want 400", typed.Status)
	}
}
