package school

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// repairable lists the reference collections that must never be empty; a
// partially-initialized store gets these re-seeded without a full wipe.
var repairable = []Collection{ColSubjects, ColClasses, ColNotices}

// Bootstrap loads the whole store into an initial State, seeding the default
// dataset when the store is uninitialized (no users at all) and self-healing
// missing reference collections otherwise. It runs once before the first
// dispatch.
func Bootstrap(ctx context.Context, store Store, logger core.Logger) (State, error) {
	snap, err := store.LoadAll(ctx)
	if err != nil {
		return State{}, errors.Wrap(err, "loading collections")
	}

	if len(snap.Users) == 0 {
		// the whole store is uninitialized: write the full default dataset
		logger.Info("empty store; seeding default dataset")
		snap = DefaultSnapshot()
		for _, col := range AllCollections {
			if docs := snap.Docs(col); len(docs) > 0 {
				if err := store.Seed(ctx, col, docs); err != nil {
					return State{}, errors.Wrapf(err, "seeding %s", col)
				}
			}
		}
		return NewState(snap), nil
	}

	// targeted repair of must-not-be-empty reference collections
	defaults := DefaultSnapshot()
	for _, col := range repairable {
		if len(snap.Docs(col)) > 0 {
			continue
		}
		logger.Warn(fmt.Sprintf("collection %s is empty; re-seeding defaults", col))
		docs := defaults.Docs(col)
		if err := store.Seed(ctx, col, docs); err != nil {
			return State{}, errors.Wrapf(err, "re-seeding %s", col)
		}
		switch col {
		case ColSubjects:
			snap.Subjects = defaults.Subjects
		case ColClasses:
			snap.Classes = defaults.Classes
		case ColNotices:
			snap.Notices = defaults.Notices
		}
	}

	migrateLegacyReports(ctx, &snap, store, logger)
	return NewState(snap), nil
}

// migrateLegacyReports links exam reports that predate session ids: a report
// carrying only a session name gets its examSessionId resolved by name
// equality. Doing this once at load keeps steady-state matching id-only.
func migrateLegacyReports(ctx context.Context, snap *Snapshot, store Store, logger core.Logger) {
	byName := make(map[string]string, len(snap.ExamSessions))
	for _, sess := range snap.ExamSessions {
		byName[sess.Name] = sess.ID
	}
	for i := range snap.ExamReports {
		report := snap.ExamReports[i]
		if report.ExamSessionID != "" {
			continue
		}
		id, ok := byName[report.SessionName]
		if !ok {
			continue
		}
		report.ExamSessionID = id
		snap.ExamReports[i] = report
		if err := store.Save(ctx, ColExamReports, report.ID, report); err != nil {
			logger.Error(fmt.Sprintf("saving migrated report %s: %v", report.ID, err), err)
		}
	}
}

// DefaultSnapshot is the dataset written into an uninitialized store: one
// developer account, the hotel-training reference data, and a welcome notice.
func DefaultSnapshot() Snapshot {
	now := time.Now().UTC()
	return Snapshot{
		Users: []User{
			{
				ID:           uuid.New().String(),
				Name:         "System Developer",
				Email:        "developer@shule.local",
				Password:     "developer",
				Role:         RoleDeveloper,
				AllowedRoles: []string{RoleDeveloper, RoleAdmin},
				Status:       StatusActive,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
		},
		Subjects: []Subject{
			{Name: "Food Production"},
			{Name: "Food & Beverage Service"},
			{Name: "Front Office Operations"},
			{Name: "Housekeeping"},
			{Name: "Hospitality Accounts"},
			{Name: "English Communication"},
		},
		Classes: []SystemClass{
			{Name: "11", Sections: []string{"Marriott", "Hilton", "Taj"}},
			{Name: "12", Sections: []string{"Marriott", "Hilton", "Taj"}},
		},
		Notices: []Notice{
			{
				ID:        uuid.New().String(),
				Title:     "Welcome",
				Body:      "Welcome to the Shule administration portal.",
				Audience:  AudienceAll,
				CreatedAt: now,
			},
		},
	}
}
