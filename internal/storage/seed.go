package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pollbooth/internal/registry"
	"pollbooth/pkg/platform/sentinel"
)

// DemoBoothID is the booth every demo record belongs to.
const DemoBoothID = "BH-042"

// SeedDemoData loads the fixed demo dataset: one officer, three voters and
// four candidates. Re-seeding an already seeded store is a no-op.
func SeedDemoData(ctx context.Context, s Seeder) error {
	officer, err := registry.NewOfficer(uuid.New(), "OFF001", "password123", "Officer Ramesh Singh", DemoBoothID)
	if err != nil {
		return err
	}
	if err := ignoreDuplicate(s.SaveOfficer(ctx, officer)); err != nil {
		return fmt.Errorf("seed officer: %w", err)
	}

	voters := []struct {
		voterID, name, address string
		age                    int
	}{
		{"VOT123456789", "Rajesh Kumar", "123 Main Street, Mumbai, MH 400001", 34},
		{"VOT987654321", "Priya Sharma", "456 Park Avenue, Mumbai, MH 400002", 28},
		{"VOT456789123", "Amit Patel", "789 Lake Road, Mumbai, MH 400003", 42},
	}
	for _, v := range voters {
		voter, err := registry.NewVoter(uuid.New(), v.voterID, v.name, v.age, v.address, DemoBoothID)
		if err != nil {
			return err
		}
		if err := ignoreDuplicate(s.SaveVoter(ctx, voter)); err != nil {
			return fmt.Errorf("seed voter %s: %w", v.voterID, err)
		}
	}

	candidates := []struct{ name, party, symbol string }{
		{"Rajiv Sharma", "Progressive Party", "lotus"},
		{"Meera Reddy", "Unity Alliance", "hand"},
		{"Arjun Patel", "Democratic Front", "elephant"},
		{"Kavita Singh", "People's Movement", "wheel"},
	}
	for _, c := range candidates {
		// Deterministic ids keep re-seeding a durable store idempotent.
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(DemoBoothID+"/"+c.name))
		candidate, err := registry.NewCandidate(id, c.name, c.party, c.symbol, DemoBoothID)
		if err != nil {
			return err
		}
		if err := ignoreDuplicate(s.SaveCandidate(ctx, candidate)); err != nil {
			return fmt.Errorf("seed candidate %s: %w", c.name, err)
		}
	}
	return nil
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return nil
	}
	return err
}
