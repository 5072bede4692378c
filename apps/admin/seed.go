package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/school"
)

// seed loads the default account and reference data into an empty database.
// A database that already holds users is left untouched.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	if err := cli.svc.Init(ctx); err != nil {
		return err
	}
	state := cli.svc.State()
	fmt.Printf("seeded: %d users, %d subjects, %d classes\n", len(state.Users), len(state.Subjects), len(state.Classes))
	return nil
}

// wipe clears every collection and re-seeds the defaults.
func (cli *commandLine) wipe() error {
	ctx := context.Background()
	if err := cli.svc.Wipe(ctx); err != nil {
		return err
	}
	fmt.Println("all collections wiped and re-seeded")
	return nil
}

// resetReceipts restarts the global receipt counter and persists the new
// value so other processes pick it up on their next load. A load never goes
// below one past the highest stored receipt, so restarting it below that only
// takes effect on an empty fee ledger.
func (cli *commandLine) resetReceipts(next int) error {
	ctx := context.Background()
	if err := cli.svc.Init(ctx); err != nil {
		return err
	}
	state, err := cli.svc.DispatchSync(ctx, school.ResetReceiptCounter{Next: next})
	if err != nil {
		return err
	}
	fmt.Printf("next receipt number: %d\n", state.ReceiptCounter)
	return nil
}
