package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rewear/internal/catalog"
	"rewear/internal/models"
	"rewear/internal/rules"
	"rewear/internal/storage"
)

// CreateListing validates the draft and publishes it as an available listing of owner.
func (app *App) CreateListing(ctx context.Context, owner *models.Account, draft models.ListingDraft) (*models.Listing, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		ID:          app.newID(),
		OwnerID:     owner.ID,
		Owner:       models.Owner{Name: owner.Name, Avatar: owner.Avatar},
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		Category:    strings.TrimSpace(draft.Category),
		Type:        strings.TrimSpace(draft.Type),
		Size:        strings.TrimSpace(draft.Size),
		Condition:   draft.Condition,
		Images:      append([]string(nil), draft.Images...),
		Tags:        normalizeTags(draft.Tags),
		PointValue:  draft.PointValue,
		Status:      models.ListingAvailable,
		UploadedAt:  app.now().UTC(),
		Location:    strings.TrimSpace(draft.Location),
	}
	if listing.Location == "" {
		listing.Location = owner.Location
	}

	if err := app.db.CreateListing(ctx, listing); err != nil {
		return nil, err
	}
	app.log.Sugar().Infof("Account %s listed %s", owner.ID, listing.ID)
	return listing, nil
}

func validateDraft(draft *models.ListingDraft) error {
	switch {
	case strings.TrimSpace(draft.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	case strings.TrimSpace(draft.Category) == "":
		return fmt.Errorf("%w: category is required", ErrInvalidListing)
	case !draft.Condition.Valid():
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidListing, draft.Condition)
	case len(draft.Images) < models.MinImages || len(draft.Images) > models.MaxImages:
		return fmt.Errorf("%w: between %d and %d images required", ErrInvalidListing, models.MinImages, models.MaxImages)
	case draft.PointValue < models.MinPointValue || draft.PointValue > models.MaxPointValue:
		return fmt.Errorf("%w: point value must be between %d and %d", ErrInvalidListing, models.MinPointValue, models.MaxPointValue)
	}
	for _, image := range draft.Images {
		if strings.TrimSpace(image) == "" {
			return fmt.Errorf("%w: empty image reference", ErrInvalidListing)
		}
	}
	return nil
}

// normalizeTags trims tags and drops empty ones and case-insensitive repeats, keeping first occurrences.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// SetListingStatus overwrites the status of a listing without consulting the transition table.
// Listings reserved by an open request are left to the swap ledger.
func (app *App) SetListingStatus(ctx context.Context, id string, status models.ListingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	listing, err := app.db.GetListing(ctx, id)
	if err != nil {
		return storageError(err, "listing "+id)
	}
	if err = app.changeListingStatus(ctx, listing, status); err != nil {
		return err
	}
	app.log.Sugar().Infof("Listing %s status set to %s", id, status)
	return nil
}

// ModerateListing moves a listing along the transition table on behalf of the administrator.
// Listings reserved by an open request are left to the swap ledger.
func (app *App) ModerateListing(ctx context.Context, actor *models.Account, id string, status models.ListingStatus) (*models.Listing, error) {
	if !rules.IsAdmin(actor) {
		return nil, fmt.Errorf("moderate listing: %w", ErrForbidden)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	listing, err := app.db.GetListing(ctx, id)
	if err != nil {
		return nil, storageError(err, "listing "+id)
	}
	if !rules.CanTransitionListing(listing.Status, status) {
		return nil, fmt.Errorf("listing %s from %s to %s: %w", id, listing.Status, status, ErrInvalidTransition)
	}

	from := listing.Status
	if err = app.changeListingStatus(ctx, listing, status); err != nil {
		return nil, err
	}
	app.log.Sugar().Infof("Listing %s moderated from %s to %s", id, from, status)
	return listing, nil
}

// changeListingStatus applies an administrative status change with a compare-and-swap from the
// status the listing was read in. Every request reservation changes the status too, so a request
// created after the check makes the swap fail.
func (app *App) changeListingStatus(ctx context.Context, listing *models.Listing, status models.ListingStatus) error {
	if listing.Status == status {
		return nil
	}

	requests, err := app.db.ListSwapRequests(ctx)
	if err != nil {
		return err
	}
	for _, request := range requests {
		if request.Status.Terminal() {
			continue
		}
		if request.ListingID == listing.ID || request.OfferedListingID == listing.ID {
			return fmt.Errorf("listing %s has open request %s: %w", listing.ID, request.ID, ErrInvalidTransition)
		}
	}

	err = app.db.ChangeListingStatus(ctx, storage.ListingChange{ListingID: listing.ID, From: listing.Status, To: status})
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("listing %s changed concurrently: %w", listing.ID, ErrInvalidTransition)
	}
	if err != nil {
		return storageError(err, "listing "+listing.ID)
	}

	listing.Status = status
	return nil
}

// Listings returns every listing, most recent first.
func (app *App) Listings(ctx context.Context) ([]models.Listing, error) {
	return app.db.ListListings(ctx)
}

// Listing returns the listing with the given id.
func (app *App) Listing(ctx context.Context, id string) (*models.Listing, error) {
	listing, err := app.db.GetListing(ctx, id)
	if err != nil {
		return nil, storageError(err, "listing "+id)
	}
	return listing, nil
}

// ListingDetail returns the listing with the given id and the related listings of its category.
func (app *App) ListingDetail(ctx context.Context, id string) (*models.ListingDetail, error) {
	listing, err := app.Listing(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := app.db.ListListings(ctx)
	if err != nil {
		return nil, err
	}
	return &models.ListingDetail{Listing: listing, Related: catalog.Related(all, listing)}, nil
}

// Browse runs a catalog query. Without a status filter only available listings are shown.
func (app *App) Browse(ctx context.Context, query catalog.Query) (*catalog.Page, error) {
	if !query.Sort.Valid() {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, query.Sort)
	}
	if query.Status == "" {
		query.Status = models.ListingAvailable
	} else if !query.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, query.Status)
	}
	if query.Condition != "" && !query.Condition.Valid() {
		return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalidQuery, query.Condition)
	}

	all, err := app.db.ListListings(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Run(all, query), nil
}

// Stats summarizes the exchange for the administrator.
func (app *App) Stats(ctx context.Context, actor *models.Account) (*models.Stats, error) {
	if !rules.IsAdmin(actor) {
		return nil, fmt.Errorf("stats: %w", ErrForbidden)
	}

	accounts, err := app.db.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	listings, err := app.db.ListListings(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := app.db.ListSwapRequests(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{TotalUsers: len(accounts)}
	for _, listing := range listings {
		switch listing.Status {
		case models.ListingAvailable:
			stats.ActiveListings++
		case models.ListingPending:
			stats.PendingListings++
		case models.ListingSwapped:
			stats.SwappedListings++
		}
	}
	for _, request := range requests {
		if !request.Status.Terminal() {
			stats.OpenRequests++
		}
	}
	return stats, nil
}
