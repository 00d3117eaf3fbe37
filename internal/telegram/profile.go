package telegram

import (
	"context"
	"log/slog"
	"os"
)

// ProfileMutator temporarily overwrites the caller's outward display name
// and photo for the duration of a call. Both Apply and Restore are
// best-effort: failures are logged and never abort the call.
type ProfileMutator struct {
	client Client
	logger *slog.Logger

	// Configured restore values take priority over the captured originals
	configuredName  string
	configuredPhoto string

	originalFirst string
	originalLast  string
	applied       bool
}

// NewProfileMutator creates a mutator restoring to the configured profile
// name/photo when set, else to the values captured at Apply time.
func NewProfileMutator(client Client, configuredName, configuredPhoto string, logger *slog.Logger) *ProfileMutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileMutator{
		client:          client,
		logger:          logger,
		configuredName:  configuredName,
		configuredPhoto: configuredPhoto,
	}
}

// Apply captures the current display name, then overwrites it with topic and
// optionally swaps the display photo when imagePath names an existing file.
func (m *ProfileMutator) Apply(ctx context.Context, topic, imagePath string) {
	me, err := m.client.Me(ctx)
	if err != nil {
		m.logger.Error("could not read current profile, skipping profile update", "error", err)
		return
	}
	m.originalFirst = me.FirstName
	m.originalLast = me.LastName
	m.applied = true

	m.logger.Info("updating profile name",
		"from", m.originalFirst+" "+m.originalLast, "to", topic)
	if err := m.client.UpdateProfile(ctx, topic, ""); err != nil {
		m.logger.Error("could not update profile name", "error", err)
	}

	if imagePath == "" {
		return
	}
	if _, err := os.Stat(imagePath); err != nil {
		m.logger.Warn("profile image not found, skipping photo update", "path", imagePath)
		return
	}
	if err := m.client.SetProfilePhoto(ctx, imagePath); err != nil {
		m.logger.Error("could not update profile photo", "path", imagePath, "error", err)
		return
	}
	m.logger.Info("updated profile photo", "path", imagePath)
}

// Restore puts the display name and photo back. It is a no-op unless Apply
// ran first.
func (m *ProfileMutator) Restore(ctx context.Context) {
	if !m.applied {
		return
	}
	m.applied = false

	first, last := m.originalFirst, m.originalLast
	if m.configuredName != "" {
		first, last = m.configuredName, ""
		m.logger.Info("restoring profile name to configured value", "name", first)
	} else {
		m.logger.Info("restoring profile name to original", "name", first+" "+last)
	}
	if err := m.client.UpdateProfile(ctx, first, last); err != nil {
		m.logger.Error("could not restore profile name", "error", err)
	}

	if m.configuredPhoto == "" {
		return
	}
	if _, err := os.Stat(m.configuredPhoto); err != nil {
		m.logger.Warn("configured profile photo not found, skipping photo restore",
			"path", m.configuredPhoto)
		return
	}
	if err := m.client.SetProfilePhoto(ctx, m.configuredPhoto); err != nil {
		m.logger.Error("could not restore profile photo", "error", err)
		return
	}
	m.logger.Info("restored profile photo", "path", m.configuredPhoto)
}
