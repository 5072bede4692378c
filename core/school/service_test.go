package school_test

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	. "github.com/trezcool/shule/core/school"
	emailsvc "github.com/trezcool/shule/services/email"
	loggersvc "github.com/trezcool/shule/services/logger"
)

// fakeStore records store traffic for assertions and can fail on demand.
type fakeStore struct {
	snapshot Snapshot

	saves   []string // "col/key"
	deletes []string
	seeded  map[Collection]int
	wiped   []Collection
	err     error
}

var _ Store = (*fakeStore)(nil)

func newFakeStore(snap Snapshot) *fakeStore {
	return &fakeStore{snapshot: snap, seeded: make(map[Collection]int)}
}

func (st *fakeStore) LoadAll(context.Context) (Snapshot, error) { return st.snapshot, st.err }

func (st *fakeStore) Save(_ context.Context, col Collection, key string, _ interface{}) error {
	if st.err != nil {
		return st.err
	}
	st.saves = append(st.saves, string(col)+"/"+key)
	return nil
}

func (st *fakeStore) Delete(_ context.Context, col Collection, key string) error {
	if st.err != nil {
		return st.err
	}
	st.deletes = append(st.deletes, string(col)+"/"+key)
	return nil
}

func (st *fakeStore) Seed(_ context.Context, col Collection, docs map[string]interface{}) error {
	if st.err != nil {
		return st.err
	}
	st.seeded[col] += len(docs)
	return nil
}

func (st *fakeStore) Wipe(_ context.Context, cols ...Collection) error {
	if st.err != nil {
		return st.err
	}
	st.wiped = append(st.wiped, cols...)
	st.snapshot = Snapshot{}
	return nil
}

func testLogger() core.Logger {
	return loggersvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
}

func newTestService(t *testing.T, store Store, mailSvc core.EmailService) *Service {
	t.Helper()
	conf := &core.Config{AppName: "Shule", FrontendBaseURL: "http://localhost:3000"}
	svc := NewService(store, testLogger(), mailSvc, conf)
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func TestService_Login(t *testing.T) {
	store := newFakeStore(Snapshot{Users: []User{
		{ID: "u1", Name: "Jane", Email: "Jane@Test.cd", Password: "s3cret", Role: RoleTeacher, Status: StatusActive},
		{ID: "u2", Name: "Paul", Email: "paul@test.cd", Password: "s3cret", Role: RoleStudent, Status: StatusPending},
		{ID: "u3", Name: "Dora", Email: "dora@test.cd", Password: "s3cret", Role: RoleStudent, Status: StatusDroppedOut},
	}})
	svc := newTestService(t, store, nil)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "active account", email: "jane@test.cd", password: "s3cret"},
		{name: "email match is case-insensitive", email: "  JANE@test.CD ", password: "s3cret"},
		{name: "wrong password", email: "jane@test.cd", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "pending account", email: "paul@test.cd", password: "s3cret", wantErr: ErrAccountPending},
		{name: "inactive account", email: "dora@test.cd", password: "s3cret", wantErr: ErrAccountInactive},
		{name: "unknown email", email: "ghost@test.cd", password: "s3cret", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Login(tt.email, tt.password)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", usr.ID)
		})
	}
}

func TestService_CheckEmailUniqueness(t *testing.T) {
	store := newFakeStore(Snapshot{Users: []User{
		{ID: "u1", Email: "jane@test.cd", Role: RoleTeacher, Status: StatusActive},
	}})
	svc := newTestService(t, store, nil)

	assert.NoError(t, svc.CheckEmailUniqueness("fresh@test.cd"))

	err := svc.CheckEmailUniqueness(" JANE@test.cd ")
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, ErrEmailExists, vErr.Err)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "email", vErr.Fields[0].Field)
}

func TestService_DispatchSync(t *testing.T) {
	store := newFakeStore(Snapshot{Users: []User{
		{ID: "s1", Name: "Amina", Email: "amina@test.cd", Role: RoleStudent, Status: StatusActive, AnnualFee: fPtr(60000)},
	}})
	svc := newTestService(t, store, nil)

	next, err := svc.DispatchSync(context.Background(), AddFee{StudentID: "s1", Amount: 10000})
	require.NoError(t, err)
	require.Len(t, next.Fees, 1)

	// both effects landed before DispatchSync returned
	assert.Contains(t, store.saves, "fees/"+next.Fees[0].ID)
	assert.Contains(t, store.saves, "users/s1")

	// store failures surface to the caller
	store.err = errors.New("store down")
	_, err = svc.DispatchSync(context.Background(), AddFee{StudentID: "s1", Amount: 500})
	assert.EqualError(t, err, "store down")
}

func TestService_Dispatch_notifiesOnApproval(t *testing.T) {
	store := newFakeStore(Snapshot{Users: []User{
		{ID: "a1", Email: "admin@test.cd", Role: RoleAdmin, Status: StatusActive},
	}})
	mailMock := emailsvc.NewConsoleServiceMock(&core.Config{AppName: "Shule"})
	svc := newTestService(t, store, mailMock)

	state := svc.Dispatch(RegisterUser{Name: "Jo", Email: "jo@test.cd", Password: "pwd", Role: RoleTeacher})
	var pendingID string
	for _, usr := range state.Users {
		if usr.Email == "jo@test.cd" {
			pendingID = usr.ID
		}
	}
	require.NotEmpty(t, pendingID)
	assert.Empty(t, mailMock.SentMessages())

	svc.Dispatch(ApproveUser{ID: pendingID})

	sent := mailMock.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Your account has been approved", sent[0].Subject)
	require.Len(t, sent[0].To, 1)
	assert.Equal(t, "jo@test.cd", sent[0].To[0].Address)

	// re-approving an already-active account is a no-op and stays silent
	svc.Dispatch(ApproveUser{ID: pendingID})
	assert.Len(t, mailMock.SentMessages(), 1)
}

func TestService_Wipe(t *testing.T) {
	store := newFakeStore(Snapshot{Users: []User{
		{ID: "u1", Email: "jane@test.cd", Role: RoleTeacher, Status: StatusActive},
	}})
	svc := newTestService(t, store, nil)

	require.NoError(t, svc.Wipe(context.Background()))
	assert.ElementsMatch(t, AllCollections, store.wiped)

	// the state came back up with the default dataset, not the old accounts
	state := svc.State()
	require.Len(t, state.Users, 1)
	assert.Equal(t, "developer@shule.local", state.Users[0].Email)
	_, found := state.FindUser("u1")
	assert.False(t, found)
}
