package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// addUser updates or creates an active account with the given role. An
// existing account must already carry that role; role changes go through the
// role-request workflow, not this command.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	if err := cli.svc.Init(ctx); err != nil {
		return err
	}

	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	state := cli.svc.State()
	for _, usr := range state.Users {
		if core.CleanString(usr.Email, true) == email {
			if usr.Role != role {
				return errors.Errorf("%s already exists with role %q", email, usr.Role)
			}
			_, err := cli.svc.DispatchSync(ctx, school.EditUser{ID: usr.ID, Updates: school.UserUpdates{
				Name:     name,
				Password: pwd,
				Status:   school.StatusActive,
			}})
			return err
		}
	}

	_, err := cli.svc.DispatchSync(ctx, school.AddUser{User: school.User{
		Name:     name,
		Email:    email,
		Password: pwd,
		Role:     role,
		Status:   school.StatusActive,
	}})
	return err
}
