package school

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountPending     = errors.New("account is pending approval")
	ErrAccountInactive    = errors.New("account is not active")
	ErrEmailExists        = errors.New("a user with this email already exists")
)

const effectTimeout = 10 * time.Second

// Service owns the application state. Dispatch applies the reducer under a
// single lock and fires the emitted effects at the store without awaiting
// them: the caller observes the new state immediately, store failures are
// logged and swallowed (at-most-once, no retry, no rollback).
type Service struct {
	mu    sync.RWMutex
	state State

	store  Store
	logger core.Logger
	mail   core.EmailService
	conf   *core.Config
}

func NewService(store Store, logger core.Logger, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		store:  store,
		logger: logger,
		mail:   mailSvc,
		conf:   conf,
	}
}

// Init runs the bootstrap sequence and installs the initial state. Must be
// called once before the first Dispatch.
func (svc *Service) Init(ctx context.Context) error {
	state, err := Bootstrap(ctx, svc.store, svc.logger)
	if err != nil {
		return err
	}
	svc.mu.Lock()
	svc.state = state
	svc.mu.Unlock()
	return nil
}

// State returns the current state. Collections share backing arrays with the
// live state; callers must treat them as read-only.
func (svc *Service) State() State {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.state
}

// Dispatch applies one command and returns the new state.
func (svc *Service) Dispatch(cmd Command) State {
	svc.mu.Lock()
	prev := svc.state
	next, effects := Apply(svc.state, cmd)
	svc.state = next
	svc.mu.Unlock()

	if len(effects) > 0 {
		go svc.persist(effects)
	}
	svc.notify(cmd, prev, next)
	return next
}

// DispatchSync applies one command and waits for the effects to land in the
// store. For administrative tooling; the API path uses Dispatch.
func (svc *Service) DispatchSync(ctx context.Context, cmd Command) (State, error) {
	svc.mu.Lock()
	next, effects := Apply(svc.state, cmd)
	svc.state = next
	svc.mu.Unlock()

	for _, eff := range effects {
		var err error
		switch eff := eff.(type) {
		case SaveDoc:
			err = svc.store.Save(ctx, eff.Col, eff.Key, eff.Doc)
		case DeleteDoc:
			err = svc.store.Delete(ctx, eff.Col, eff.Key)
		}
		if err != nil {
			return next, err
		}
	}
	return next, nil
}

// persist applies effects to the store, logging and swallowing failures; the
// in-memory state has already moved on and is not reconciled.
func (svc *Service) persist(effects []Effect) {
	ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
	defer cancel()

	for _, eff := range effects {
		var err error
		switch eff := eff.(type) {
		case SaveDoc:
			err = svc.store.Save(ctx, eff.Col, eff.Key, eff.Doc)
		case DeleteDoc:
			err = svc.store.Delete(ctx, eff.Col, eff.Key)
		}
		if err != nil {
			svc.logger.Error(fmt.Sprintf("persisting effect: %v", err), err)
		}
	}
}

// notify sends the post-dispatch emails that hang off certain commands.
// Delivery is the email service's problem; nothing here blocks or fails.
// The approval mail only goes out when the dispatch actually flipped the
// account from pending to active; a no-oped command stays silent.
func (svc *Service) notify(cmd Command, prev, next State) {
	if svc.mail == nil {
		return
	}
	approve, ok := cmd.(ApproveUser)
	if !ok {
		return
	}
	before, found := prev.FindUser(approve.ID)
	if !found || before.Status != StatusPending {
		return
	}
	usr, found := next.FindUser(approve.ID)
	if !found || usr.Status != StatusActive || usr.Email == "" {
		return
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Your account has been approved",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour %s account has been approved. You can now log in at %s.\n",
			usr.Name, usr.Role, svc.conf.FrontendBaseURL,
		),
	})
}

// Login authenticates by case-insensitive email and exact password match.
// The three failure modes are distinct, never conflated.
func (svc *Service) Login(email, password string) (User, error) {
	email = core.CleanString(email, true)

	svc.mu.RLock()
	defer svc.mu.RUnlock()

	for _, usr := range svc.state.Users {
		if core.CleanString(usr.Email, true) != email {
			continue
		}
		if usr.Password != password {
			return User{}, ErrInvalidCredentials
		}
		switch usr.Status {
		case StatusActive:
			return usr, nil
		case StatusPending:
			return User{}, ErrAccountPending
		default:
			return User{}, ErrAccountInactive
		}
	}
	return User{}, ErrNotFound
}

// CheckEmailUniqueness validates a registration email against existing
// accounts.
func (svc *Service) CheckEmailUniqueness(email string) error {
	email = core.CleanString(email, true)

	svc.mu.RLock()
	defer svc.mu.RUnlock()

	for _, usr := range svc.state.Users {
		if core.CleanString(usr.Email, true) == email {
			return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
	}
	return nil
}

// Wipe clears every collection and resets the in-memory state to the seeded
// defaults (administrative full reset).
func (svc *Service) Wipe(ctx context.Context) error {
	if err := svc.store.Wipe(ctx, AllCollections...); err != nil {
		return err
	}
	return svc.Init(ctx)
}
