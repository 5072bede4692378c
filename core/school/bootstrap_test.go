package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/shule/core/school"
)

func TestBootstrap_seedsEmptyStore(t *testing.T) {
	store := newFakeStore(Snapshot{})

	state, err := Bootstrap(context.Background(), store, testLogger())
	require.NoError(t, err)

	require.Len(t, state.Users, 1)
	dev := state.Users[0]
	assert.Equal(t, "developer@shule.local", dev.Email)
	assert.Equal(t, RoleDeveloper, dev.Role)
	assert.Equal(t, StatusActive, dev.Status)
	assert.Contains(t, dev.AllowedRoles, RoleAdmin)

	assert.Len(t, state.Subjects, 6)
	assert.Len(t, state.Classes, 2)
	assert.Len(t, state.Notices, 1)

	assert.Equal(t, 1, store.seeded[ColUsers])
	assert.Equal(t, 6, store.seeded[ColSubjects])
	assert.Equal(t, 2, store.seeded[ColClasses])
	assert.Equal(t, 1, store.seeded[ColNotices])
	assert.Zero(t, store.seeded[ColFees])
}

func TestBootstrap_repairsEmptyReferenceCollections(t *testing.T) {
	store := newFakeStore(Snapshot{
		Users: []User{
			{ID: "u1", Email: "jane@test.cd", Role: RoleTeacher, Status: StatusActive},
		},
		Classes: []SystemClass{{Name: "10", Sections: []string{"A"}}},
	})

	state, err := Bootstrap(context.Background(), store, testLogger())
	require.NoError(t, err)

	// existing data is never overwritten
	require.Len(t, state.Users, 1)
	assert.Equal(t, "jane@test.cd", state.Users[0].Email)
	require.Len(t, state.Classes, 1)
	assert.Equal(t, "10", state.Classes[0].Name)
	assert.Zero(t, store.seeded[ColUsers])
	assert.Zero(t, store.seeded[ColClasses])

	// empty reference collections come back
	assert.Len(t, state.Subjects, 6)
	assert.Len(t, state.Notices, 1)
	assert.Equal(t, 6, store.seeded[ColSubjects])
	assert.Equal(t, 1, store.seeded[ColNotices])
}

func TestBootstrap_linksLegacyReports(t *testing.T) {
	store := newFakeStore(Snapshot{
		Users: []User{
			{ID: "u1", Email: "jane@test.cd", Role: RoleTeacher, Status: StatusActive},
		},
		Subjects: []Subject{{Name: "Housekeeping"}},
		Classes:  []SystemClass{{Name: "11", Sections: []string{"A"}}},
		Notices:  []Notice{{ID: "n1", Title: "hi"}},
		ExamSessions: []ExamSession{
			{ID: "e1", Name: "Mid Term", Status: SessionClosed},
		},
		ExamReports: []ExamReport{
			{ID: "r1", StudentID: "s1", SessionName: "Mid Term"},
			{ID: "r2", StudentID: "s2", ExamSessionID: "e9", SessionName: "Mid Term"},
			{ID: "r3", StudentID: "s3", SessionName: "Unknown Session"},
		},
	})

	state, err := Bootstrap(context.Background(), store, testLogger())
	require.NoError(t, err)

	reports := make(map[string]ExamReport)
	for _, r := range state.ExamReports {
		reports[r.ID] = r
	}
	assert.Equal(t, "e1", reports["r1"].ExamSessionID) // resolved by name
	assert.Equal(t, "e9", reports["r2"].ExamSessionID) // already linked, untouched
	assert.Empty(t, reports["r3"].ExamSessionID)       // no session by that name

	// only the migrated report was written back
	assert.Equal(t, []string{"examReports/r1"}, store.saves)
}
