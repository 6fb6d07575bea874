package app

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"rewear/internal/models"
	"rewear/internal/pkg/security"
	"rewear/internal/storage"
)

//go:embed seed.yaml
var seedDocument []byte

const seedDateLayout = "2006-01-02"

type seedAccount struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Avatar   string `yaml:"avatar"`
	Points   int    `yaml:"points"`
	JoinDate string `yaml:"joinDate"`
	Location string `yaml:"location"`
}

type seedListing struct {
	ID          string   `yaml:"id"`
	Owner       string   `yaml:"owner"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Type        string   `yaml:"type"`
	Size        string   `yaml:"size"`
	Condition   string   `yaml:"condition"`
	Images      []string `yaml:"images"`
	Tags        []string `yaml:"tags"`
	PointValue  int      `yaml:"pointValue"`
	Status      string   `yaml:"status"`
	UploadDate  string   `yaml:"uploadDate"`
	Location    string   `yaml:"location"`
}

type seedData struct {
	Accounts []seedAccount `yaml:"accounts"`
	Listings []seedListing `yaml:"listings"`
}

// SeedResult counts the records a seeding run created.
type SeedResult struct {
	Accounts int
	Listings int
}

// Seed loads the embedded demo accounts and listings. Records that already exist are skipped,
// so seeding a database twice is harmless.
func (app *App) Seed(ctx context.Context) (*SeedResult, error) {
	return app.seed(ctx, seedDocument)
}

func (app *App) seed(ctx context.Context, document []byte) (*SeedResult, error) {
	var data seedData
	if err := yaml.Unmarshal(document, &data); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}

	result := &SeedResult{}
	owners := make(map[string]*models.Account, len(data.Accounts))

	for _, seed := range data.Accounts {
		joined, err := time.Parse(seedDateLayout, seed.JoinDate)
		if err != nil {
			return result, fmt.Errorf("seed account %s: %w", seed.ID, err)
		}
		hash, err := security.HashPassword(seed.Password)
		if err != nil {
			return result, err
		}

		account := &models.Account{
			ID:           seed.ID,
			Name:         seed.Name,
			Email:        seed.Email,
			PasswordHash: hash,
			Avatar:       seed.Avatar,
			Points:       seed.Points,
			JoinedAt:     joined,
			Location:     seed.Location,
		}
		owners[account.ID] = account

		err = app.db.CreateAccount(ctx, account)
		if errors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return result, fmt.Errorf("seed account %s: %w", seed.ID, err)
		}
		result.Accounts++
	}

	for _, seed := range data.Listings {
		owner, ok := owners[seed.Owner]
		if !ok {
			return result, fmt.Errorf("seed listing %s: unknown owner %q", seed.ID, seed.Owner)
		}
		uploaded, err := time.Parse(seedDateLayout, seed.UploadDate)
		if err != nil {
			return result, fmt.Errorf("seed listing %s: %w", seed.ID, err)
		}

		draft := models.ListingDraft{
			Title:      seed.Title,
			Category:   seed.Category,
			Condition:  models.Condition(seed.Condition),
			Images:     seed.Images,
			PointValue: seed.PointValue,
		}
		if err := validateDraft(&draft); err != nil {
			return result, fmt.Errorf("seed listing %s: %w", seed.ID, err)
		}
		status := models.ListingStatus(seed.Status)
		if !status.Valid() {
			return result, fmt.Errorf("seed listing %s: %w: %q", seed.ID, ErrInvalidStatus, seed.Status)
		}

		listing := &models.Listing{
			ID:          seed.ID,
			OwnerID:     owner.ID,
			Owner:       models.Owner{Name: owner.Name, Avatar: owner.Avatar},
			Title:       seed.Title,
			Description: seed.Description,
			Category:    seed.Category,
			Type:        seed.Type,
			Size:        seed.Size,
			Condition:   draft.Condition,
			Images:      seed.Images,
			Tags:        normalizeTags(seed.Tags),
			PointValue:  seed.PointValue,
			Status:      status,
			UploadedAt:  uploaded,
			Location:    seed.Location,
		}

		err = app.db.CreateListing(ctx, listing)
		if errors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return result, fmt.Errorf("seed listing %s: %w", seed.ID, err)
		}
		result.Listings++
	}

	app.log.Sugar().Infof("Seeded %d accounts and %d listings", result.Accounts, result.Listings)
	return result, nil
}
