package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cppla/postwall/models"
)

// MaxTextLength bounds captions and comments, counted in characters.
const MaxTextLength = 1000

// Actor is the authenticated principal a mutation runs on behalf of.
type Actor struct {
	ID   uint
	Name string
}

// Anonymous reports whether no principal is attached.
func (a Actor) Anonymous() bool { return a.ID == 0 }

func requireActor(actor Actor) error {
	if actor.Anonymous() {
		return models.NewUnauthenticatedError()
	}
	return nil
}

// authorize is the single ownership guard for owner-only mutations.
func authorize(actor Actor, ownerID uint) error {
	if actor.ID == 0 || actor.ID != ownerID {
		return models.NewForbiddenError("no access")
	}
	return nil
}

// cleanText trims and bounds user supplied text. The result is stored
// verbatim; escaping belongs to whoever renders it.
func cleanText(field, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", models.NewValidationError(field + " is required")
	}
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return "", models.NewValidationError(field + " must be valid UTF-8 text")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", models.NewValidationError(fmt.Sprintf("%s may not be greater than %d characters", field, MaxTextLength))
	}
	return text, nil
}
