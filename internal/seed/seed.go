// Package seed loads sample users and runs for local development.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
	"github.com/Shivanand-hulikatti/runclub/internal/service"
)

// SamplePassword is the password of every sample account.
const SamplePassword = "password123"

// Runs are the sample runs.
var Runs = []model.CreateRunRequest{
	{Date: "2025-10-20", Time: "09:00", MeetingPlace: "Main Entrance", Venue: "Victoria Park", LengthKM: 500, MaxCapacity: 20},
	{Date: "2025-10-22", Time: "18:30", MeetingPlace: "Canal Towpath", Venue: "Regent's Canal", LengthKM: 1000, MaxCapacity: 15},
	{Date: "2025-10-25", Time: "07:00", MeetingPlace: "North Gate", Venue: "Hampstead Heath", LengthKM: 850, MaxCapacity: 3},
}

// SampleUsers is the number of sample accounts (user1 … userN).
const SampleUsers = 5

// Result counts what a seed pass created.
type Result struct {
	UsersCreated int
	RunsCreated  int
}

// Seed creates the sample accounts and runs. Existing accounts, and runs with
// the same date and venue, are left alone, so seeding twice is harmless.
func Seed(ctx context.Context, runs *service.RunService, accounts *service.AccountService) (Result, error) {
	var res Result

	for i := 1; i <= SampleUsers; i++ {
		name := fmt.Sprintf("user%d", i)
		_, err := accounts.Register(ctx, model.CreateAccountRequest{
			Username: name,
			Email:    name + "@example.com",
			Password: SamplePassword,
		})
		switch {
		case err == nil:
			res.UsersCreated++
		case errors.Is(err, repository.ErrUserExists):
			log.Debug(log.CatDB, "Sample user exists", "username", name)
		default:
			return res, fmt.Errorf("seed user %s: %w", name, err)
		}
	}

	existing, err := runs.ListRuns(ctx)
	if err != nil {
		return res, fmt.Errorf("seed runs: %w", err)
	}
	type key struct {
		date  model.Date
		venue string
	}
	seen := make(map[key]bool, len(existing))
	for _, r := range existing {
		seen[key{r.Date, r.Venue}] = true
	}

	for _, req := range Runs {
		if seen[key{model.Date(req.Date), req.Venue}] {
			continue
		}
		run, err := runs.CreateRun(ctx, req)
		if err != nil {
			return res, fmt.Errorf("seed run %s: %w", req.Venue, err)
		}
		log.Info(log.CatDB, "Created run", "run", run.String())
		res.RunsCreated++
	}
	return res, nil
}
