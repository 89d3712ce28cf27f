// Package message turns normalized errors and UI states into localized,
// user-facing text.
package message

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/nhle/taskclient/internal/api"
)

// Message IDs.
const (
	ErrNetwork         = "errNetwork"
	ErrUnauthenticated = "errUnauthenticated"
	ErrNotFound        = "errNotFound"
	ErrValidation      = "errValidation"
	ErrServerFault     = "errServerFault"
	ErrUnknown         = "errUnknown"

	StateLoading    = "stateLoading"
	StateCached     = "stateCached"
	StateEmpty      = "stateEmpty"
	StateNoMatch    = "stateNoMatch"
	StateSignedInAs = "stateSignedInAs"

	TaskCreated   = "taskCreated"
	TaskUpdated   = "taskUpdated"
	TaskDeleted   = "taskDeleted"
	TaskCopied    = "taskCopied"
	SignedOut     = "signedOut"
	SignedIn      = "signedIn"
	Registered    = "registered"
	ConfirmDelete = "confirmDelete"
)

// Supported UI languages.
const (
	LanguageEn = "en"
	LanguageFr = "fr"
)

//go:embed locales/*.toml
var locales embed.FS

var supported = language.NewMatcher([]language.Tag{language.English, language.French})

// Catalog looks up messages for one language, falling back to English.
type Catalog struct {
	localizer *i18n.Localizer
	lang      language.Tag
}

// New loads the embedded catalogs and picks the closest supported match
// for lang (e.g. "fr-CA" selects French). Unknown languages get English.
func New(lang string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(locales, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("listing message catalogs: %w", err)
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(locales, f); err != nil {
			return nil, fmt.Errorf("loading message catalog %s: %w", f, err)
		}
	}

	tag, _ := language.MatchStrings(supported, lang)
	base, _ := tag.Base()
	return &Catalog{
		localizer: i18n.NewLocalizer(bundle, base.String(), LanguageEn),
		lang:      tag,
	}, nil
}

// MustNew is New for callers that cannot recover, such as tests.
func MustNew(lang string) *Catalog {
	c, err := New(lang)
	if err != nil {
		panic(err)
	}
	return c
}

// Language is the matched catalog language.
func (c *Catalog) Language() string {
	base, _ := c.lang.Base()
	return base.String()
}

// T returns the message with the given id, filling template fields from
// data. A missing id is returned as-is.
func (c *Catalog) T(id string, data map[string]any) string {
	msg, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		zap.L().Warn("translation not found", zap.String("message_id", id), zap.Error(err))
		return id
	}
	return msg
}

// Describe returns the text shown to the user for err. Validation and
// server faults show the server's own message when it sent one.
func (c *Catalog) Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return c.T(ErrUnknown, nil)
	}

	switch apiErr.Kind {
	case api.KindNetwork:
		return c.T(ErrNetwork, nil)
	case api.KindUnauthenticated:
		return c.T(ErrUnauthenticated, nil)
	case api.KindNotFound:
		return c.T(ErrNotFound, nil)
	case api.KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return c.T(ErrValidation, nil)
	default:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return c.T(ErrServerFault, nil)
	}
}
