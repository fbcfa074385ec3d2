package sync

import (
	"context"
	"fmt"

	"github.com/carelink/patient-admin/pkg/interfaces"
	"github.com/carelink/patient-admin/pkg/types"
)

// IndicatorView is the rendered connectivity indicator state. It is derived
// entirely from a SyncStatus; rendering holds no state of its own.
type IndicatorView struct {
	// Visible is false when online with nothing queued: a healthy idle
	// connection shows no indicator at all.
	Visible bool `json:"visible"`

	// OfflineBadge is shown whenever connectivity is lost
	OfflineBadge bool `json:"offline_badge"`

	// ShowSyncButton is true when queued writes are waiting
	ShowSyncButton bool `json:"show_sync_button"`

	// SyncButtonLabel is the pending-count label, e.g. "3 pending"
	SyncButtonLabel string `json:"sync_button_label,omitempty"`

	// SyncButtonEnabled is true only when a drain could actually run
	SyncButtonEnabled bool `json:"sync_button_enabled"`

	// Syncing is true while a drain is in progress
	Syncing bool `json:"syncing"`

	// Tooltip explains the sync button's current state
	Tooltip string `json:"tooltip,omitempty"`
}

// Render derives the indicator view from the sync state
func Render(status types.SyncStatus) IndicatorView {
	view := IndicatorView{
		OfflineBadge: !status.IsOnline,
		Syncing:      status.IsSyncing,
	}

	if status.PendingSyncCount > 0 {
		view.ShowSyncButton = true
		view.SyncButtonLabel = fmt.Sprintf("%d pending", status.PendingSyncCount)
		view.SyncButtonEnabled = status.IsOnline && !status.IsSyncing

		switch {
		case !status.IsOnline:
			view.Tooltip = "Changes will sync when you're back online"
		case status.IsSyncing:
			view.Tooltip = "Sync in progress"
		default:
			view.Tooltip = "Click to sync pending changes"
		}
	}

	view.Visible = !status.IsOnline || status.PendingSyncCount > 0
	return view
}

// Indicator exposes the connectivity indicator backed by the sync engine
type Indicator struct {
	service interfaces.SyncService
}

// NewIndicator creates a new indicator
func NewIndicator(service interfaces.SyncService) *Indicator {
	return &Indicator{service: service}
}

// View renders the current indicator state
func (i *Indicator) View(ctx context.Context) (IndicatorView, error) {
	status, err := i.service.Status(ctx)
	if err != nil {
		return IndicatorView{}, err
	}
	return Render(status), nil
}

// Trigger starts a drain from the indicator's sync button. Triggering while
// offline is a no-op rather than an error: the button is disabled offline,
// and a stale click should not surface a failure.
func (i *Indicator) Trigger(ctx context.Context) error {
	status, err := i.service.Status(ctx)
	if err != nil {
		return err
	}

	if !status.IsOnline {
		return nil
	}

	return i.service.SyncWithServer(ctx)
}
