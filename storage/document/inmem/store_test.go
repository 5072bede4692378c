package inmemstore

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/school"
	loggersvc "github.com/trezcool/shule/services/logger"
)

func newStore() *Store {
	return New(loggersvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0)))
}

func TestStore_roundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore()

	usr := school.User{ID: "u1", Name: "Jane", Email: "jane@test.cd", Role: school.RoleTeacher, Status: school.StatusActive}
	require.NoError(t, st.Save(ctx, school.ColUsers, usr.ID, usr))
	require.NoError(t, st.Save(ctx, school.ColSubjects, "Housekeeping", school.Subject{Name: "Housekeeping"}))

	snap, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "Jane", snap.Users[0].Name)
	require.Len(t, snap.Subjects, 1)

	// upsert by key
	usr.Name = "Jane B"
	require.NoError(t, st.Save(ctx, school.ColUsers, usr.ID, usr))
	snap, err = st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "Jane B", snap.Users[0].Name)
}

func TestStore_delete(t *testing.T) {
	ctx := context.Background()
	st := newStore()

	require.NoError(t, st.Save(ctx, school.ColUsers, "u1", school.User{ID: "u1"}))
	require.NoError(t, st.Delete(ctx, school.ColUsers, "u1"))
	// absent keys are a no-op
	require.NoError(t, st.Delete(ctx, school.ColUsers, "ghost"))

	snap, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Users)
}

func TestStore_seedAndWipe(t *testing.T) {
	ctx := context.Background()
	st := newStore()

	docs := map[string]interface{}{
		"u1": school.User{ID: "u1"},
		"u2": school.User{ID: "u2"},
	}
	require.NoError(t, st.Seed(ctx, school.ColUsers, docs))
	require.NoError(t, st.Save(ctx, school.ColNotices, "n1", school.Notice{ID: "n1"}))

	snap, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Users, 2)
	assert.Len(t, snap.Notices, 1)

	require.NoError(t, st.Wipe(ctx, school.ColUsers))
	snap, err = st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Users)
	assert.Len(t, snap.Notices, 1) // untouched
}
