// Package resolve turns a raw stream request into a fully specified upstream
// call: generation parameters settled by precedence, profile preset applied to
// the model id, and the session history assembled with an optional injected
// system prompt.
package resolve

import (
	"context"
	"strings"

	"llmconsole/internal/apierr"
	"llmconsole/internal/models"
	"llmconsole/internal/store"
	"llmconsole/internal/upstream"
)

const presetMarker = "@preset/"

// Request carries the caller's stream parameters; nil fields fall through the
// precedence chain.
type Request struct {
	SessionID   string   // Required; owning conversation.
	ModelID     string   // Local catalog id or upstream identifier.
	Temperature *float64 // Explicit override, when given.
	MaxTokens   *int     // Explicit override, when given.
	ProfileID   *uint64  // Explicit override of the session's profile.
}

// Resolved is the settled upstream call plus the identifiers the orchestrator
// needs for persistence.
type Resolved struct {
	Request        upstream.ChatRequest // Ready to send upstream.
	CatalogModelID *string              // Local catalog id for the usage row, when the model is known.
	ProfileID      *uint64              // Profile in effect, when any.
}

// Credentials reports whether an upstream API key is configured.
type Credentials interface {
	Configured() bool
}

// Resolver settles stream parameters against stored session and profile
// defaults.
type Resolver struct {
	sessions    *store.Sessions
	profiles    *store.Profiles
	catalog     *store.Catalog
	messages    *store.Messages
	credentials Credentials
}

// NewResolver constructs a Resolver.
func NewResolver(sessions *store.Sessions, profiles *store.Profiles, catalog *store.Catalog, messages *store.Messages, credentials Credentials) *Resolver {
	return &Resolver{
		sessions:    sessions,
		profiles:    profiles,
		catalog:     catalog,
		messages:    messages,
		credentials: credentials,
	}
}

// Resolve validates references, settles parameters and assembles the outgoing
// message list. All failures here precede any upstream network call.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolved, error) {
	session, errSession := r.sessions.Get(ctx, req.SessionID)
	if errSession != nil {
		return nil, errSession
	}

	// Request override beats the session's stored default.
	profileID := req.ProfileID
	if profileID == nil {
		profileID = session.ProfileID
	}
	var profile *models.Profile
	if profileID != nil {
		var errProfile error
		profile, errProfile = r.profiles.Get(ctx, *profileID)
		if errProfile != nil {
			return nil, errProfile
		}
	}

	if !r.credentials.Configured() {
		return nil, apierr.Configuration(apierr.CodeMissingAPIKey, "no OpenRouter API key is configured")
	}

	temperature := models.DefaultTemperature
	maxTokens := models.DefaultMaxTokens
	if profile != nil {
		temperature = profile.Temperature
		maxTokens = profile.MaxTokens
	}
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	upstreamModel := req.ModelID
	var catalogID *string
	if entry, errModel := r.catalog.GetByAnyID(ctx, req.ModelID); errModel == nil {
		upstreamModel = entry.OpenRouterID
		catalogID = &entry.ID
	} else if !apierr.IsNotFound(errModel) {
		return nil, errModel
	}
	// Unknown models pass through verbatim: the upstream catalog moves faster
	// than the local sync.

	upstreamModel = applyPreset(upstreamModel, profile)

	history, errHistory := r.messages.List(ctx, req.SessionID)
	if errHistory != nil {
		return nil, errHistory
	}

	outgoing := make([]upstream.Message, 0, len(history)+1)
	if profile != nil && profile.SystemPrompt != nil && strings.TrimSpace(*profile.SystemPrompt) != "" {
		outgoing = append(outgoing, upstream.Message{Role: models.RoleSystem, Content: *profile.SystemPrompt})
	}
	for _, m := range history {
		outgoing = append(outgoing, upstream.Message{Role: m.Role, Content: m.Content})
	}

	return &Resolved{
		Request: upstream.ChatRequest{
			Model:       upstreamModel,
			Messages:    outgoing,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
		CatalogModelID: catalogID,
		ProfileID:      profileID,
	}, nil
}

// applyPreset appends the profile's routing preset to the model id unless the
// id already carries one. The stored tag may itself be written with the
// marker prefix.
func applyPreset(modelID string, profile *models.Profile) string {
	if profile == nil || profile.OpenRouterPreset == nil {
		return modelID
	}
	tag := strings.TrimSpace(*profile.OpenRouterPreset)
	if tag == "" || strings.Contains(modelID, presetMarker) {
		return modelID
	}
	tag = strings.TrimPrefix(tag, presetMarker)
	return modelID + presetMarker + tag
}
