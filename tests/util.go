package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	logsvc "github.com/trezcool/shule/services/logger"
	inmemstore "github.com/trezcool/shule/storage/document/inmem"
)

// NewService builds a bootstrapped school.Service over an in-memory store.
func NewService(t *testing.T, conf *core.Config, mailSvc core.EmailService) *school.Service {
	t.Helper()

	logger := logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
	store := inmemstore.New(logger)
	svc := school.NewService(store, logger, mailSvc, conf)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("initializing service: %v", err)
	}
	return svc
}

func CreateUser(t *testing.T, svc *school.Service, name, email, pwd, role string, active bool) school.User {
	t.Helper()

	status := school.StatusPending
	if active {
		status = school.StatusActive
	}
	return addUser(t, svc, school.User{
		Name:     name,
		Email:    email,
		Password: pwd,
		Role:     role,
		Status:   status,
	})
}

func CreateStudent(t *testing.T, svc *school.Service, name, email, classID, section string, annualFee float64) school.User {
	t.Helper()

	return addUser(t, svc, school.User{
		Name:      name,
		Email:     email,
		Password:  "password",
		Role:      school.RoleStudent,
		Status:    school.StatusActive,
		ClassID:   classID,
		Section:   section,
		AnnualFee: &annualFee,
	})
}

func CreateTeacher(t *testing.T, svc *school.Service, name, email string, subjects ...string) school.User {
	t.Helper()

	return addUser(t, svc, school.User{
		Name:     name,
		Email:    email,
		Password: "password",
		Role:     school.RoleTeacher,
		Status:   school.StatusActive,
		Subjects: subjects,
	})
}

func addUser(t *testing.T, svc *school.Service, usr school.User) school.User {
	t.Helper()

	next, err := svc.DispatchSync(context.Background(), school.AddUser{User: usr})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	for _, u := range next.Users {
		if u.Email == usr.Email {
			return u
		}
	}
	t.Fatalf("created user %q not found in state", usr.Email)
	return school.User{}
}
