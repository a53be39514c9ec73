// Package device provides desktop stand-ins for the camera and
// geolocation device APIs: a still photo acts as the camera feed, its
// EXIF GPS block (or explicit coordinates) acts as the position source,
// and native dialogs stand in for browser permission prompts.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// Permission names a device capability the user must grant.
type Permission string

const (
	PermissionCamera   Permission = "camera"
	PermissionLocation Permission = "location"
)

// ErrPermissionDenied is returned when the user blocks a permission.
var ErrPermissionDenied = errors.New("permission denied")

// Prompter asks the user to grant a permission.
type Prompter interface {
	Allow(ctx context.Context, p Permission) error
}

// AllowAll grants every permission without asking.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, Permission) error { return nil }

// DenyAll refuses every permission.
type DenyAll struct{}

func (DenyAll) Allow(_ context.Context, p Permission) error {
	return fmt.Errorf("%s: %w", p, ErrPermissionDenied)
}

// DialogPrompter shows a native Allow/Block dialog per permission and
// remembers the answer for the rest of the process.
type DialogPrompter struct {
	Title   string
	granted map[Permission]bool
}

// NewDialogPrompter creates a DialogPrompter.
func NewDialogPrompter(title string) *DialogPrompter {
	return &DialogPrompter{Title: title, granted: make(map[Permission]bool)}
}

// Allow asks once per permission; a cancelled dialog counts as Block.
func (d *DialogPrompter) Allow(ctx context.Context, p Permission) error {
	if d.granted[p] {
		return nil
	}

	err := zenity.Question(
		fmt.Sprintf("%s wants to use your %s.", d.Title, p),
		zenity.Title(d.Title),
		zenity.QuestionIcon,
		zenity.OKLabel("Allow"),
		zenity.CancelLabel("Block"),
		zenity.Context(ctx),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			log.Info().Str("permission", string(p)).Msg("Permission blocked by user")
			return fmt.Errorf("%s: %w", p, ErrPermissionDenied)
		}
		return fmt.Errorf("%s permission dialog: %w", p, err)
	}

	d.granted[p] = true
	log.Debug().Str("permission", string(p)).Msg("Permission granted")
	return nil
}

// PickPhoto opens a native file dialog for choosing the issue photo.
func PickPhoto(ctx context.Context) (string, error) {
	path, err := zenity.SelectFile(
		zenity.Title("Select a photo of the issue"),
		zenity.FileFilters{
			{
				Name:     "Photos",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"},
				CaseFold: true,
			},
		},
		zenity.Context(ctx),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", fmt.Errorf("photo selection: %w", ErrPermissionDenied)
		}
		return "", fmt.Errorf("photo picker failed: %w", err)
	}
	log.Info().Str("path", path).Msg("Photo picked via native dialog")
	return path, nil
}
