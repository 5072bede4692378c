package main

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	if err := cli.svc.Init(ctx); err != nil {
		return err
	}

	email = core.CleanString(email, true /* lower */)

	state := cli.svc.State()
	for _, usr := range state.Users {
		if core.CleanString(usr.Email, true) == email {
			_, err := cli.svc.DispatchSync(ctx, school.EditUser{ID: usr.ID, Updates: school.UserUpdates{Password: pwd}})
			return err
		}
	}
	return school.ErrNotFound
}
