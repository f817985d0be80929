package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/session"
	"github.com/vadimbarashkov/shorty/internal/settings"
	"github.com/vadimbarashkov/shorty/internal/sharetarget"
)

type PrefsView struct {
	APIKey     string
	Authorized bool
	Domains    []entity.Domain
	Error      json.RawMessage
	DevMode    bool
	Params     []sharetarget.Param
}

// PrefsInput holds the settings to change. Nil fields are left as they are.
type PrefsInput struct {
	APIKey  *string
	DevMode *bool
}

// Prefs returns the settings view. The credential is checked by listing the
// domains it gives access to.
func (uc *LinkUseCase) Prefs(ctx context.Context, s *session.Session, query url.Values) PrefsView {
	view := PrefsView{
		APIKey:  settings.APIKey(s.Settings),
		DevMode: settings.DevMode(s.Settings),
	}

	if view.APIKey != "" {
		_, domains, err := uc.domains(ctx, s)
		view.Domains = domains
		view.Authorized = err == nil
		view.Error = ErrorPayload(err)
	}

	if view.DevMode {
		view.Params = sharetarget.Params(query)
	}

	return view
}

// UpdatePrefs stores the changed settings. Clearing the API key removes it.
func (uc *LinkUseCase) UpdatePrefs(ctx context.Context, s *session.Session, in PrefsInput) error {
	const op = "usecase.LinkUseCase.UpdatePrefs"

	if in.APIKey != nil && *in.APIKey != settings.APIKey(s.Settings) {
		var err error
		if *in.APIKey == "" {
			err = s.Settings.Remove(ctx, entity.SettingAPIKey)
		} else {
			err = s.Settings.Set(ctx, entity.SettingAPIKey, *in.APIKey)
		}
		if err != nil {
			return fmt.Errorf("%s: failed to store api key: %w", op, err)
		}
	}

	if in.DevMode != nil && *in.DevMode != settings.DevMode(s.Settings) {
		if err := s.Settings.Set(ctx, entity.SettingDevMode, *in.DevMode); err != nil {
			return fmt.Errorf("%s: failed to store dev mode: %w", op, err)
		}
	}

	return nil
}

// Focus revalidates the cached reads of the session.
func (uc *LinkUseCase) Focus(ctx context.Context, s *session.Session) int {
	return s.Cache.Focus(ctx)
}
