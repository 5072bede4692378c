package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

var errNoPermsToApprove = "not enough rights to approve this role"

type userApi struct {
	svc      *school.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:      deps.SchoolSvc,
		conf:     deps.Conf,
		validate: deps.Validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.POST("/switch-role", api.switchRole)
	ag.GET("/roles", api.queryRoles)
	ag.GET("/pending", api.queryPending)
	ag.POST("/role-requests", api.requestRole)
	ag.GET("/role-requests", api.queryRoleRequests, minRoleMiddleware(school.RoleAdministrator))
	ag.PUT("/role-requests/:id", api.resolveRoleRequest, minRoleMiddleware(school.RoleAdministrator))
	ag.GET("", api.query, minRoleMiddleware(school.RoleAdministrator))
	ag.POST("", api.create, minRoleMiddleware(school.RoleAdministrator))

	// detail endpoints
	dg := ag.Group("/:id")
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, minRoleMiddleware(school.RoleAdmin))
	dg.PUT("/approve", api.approve)
	dg.DELETE("/reject", api.reject)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.svc.CheckEmailUniqueness(data.Email); err != nil {
		return err
	}

	next := api.svc.Dispatch(school.RegisterUser{
		Name:     data.Name,
		Email:    data.Email,
		Password: data.Password,
		Role:     data.Role,
	})
	for _, usr := range next.Users {
		if core.CleanString(usr.Email, true) == data.Email {
			usr.Password = ""
			return ctx.JSON(http.StatusCreated, usr)
		}
	}
	return errors.New("registered user not found in state")
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(data.Email, data.Password, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	usr.Password = ""
	return ctx.JSON(http.StatusOK, usr)
}

// switchRole changes the caller's active role to one of their allowedRoles
// and issues a fresh token carrying it.
func (api *userApi) switchRole(ctx echo.Context) error {
	var data SwitchRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SwitchRoleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.HasAllowedRole(data.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "role not allowed for this account"})
	}

	next := api.svc.Dispatch(school.SwitchRole{UserID: ctxUsr.ID, Role: data.Role})
	usr, ok := next.FindUser(ctxUsr.ID)
	if !ok {
		return errHttpNotFound
	}
	ctx.Set(contextUserKey, usr)

	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, school.AllRoles)
}

// queryPending lists the pending registrations the caller may resolve.
func (api *userApi) queryPending(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	state := api.svc.State()
	pending := state.PendingUsersFor(ctxUsr)
	if pending == nil {
		pending = []school.User{}
	}
	return ctx.JSON(http.StatusOK, pending)
}

func (api *userApi) requestRole(ctx echo.Context) error {
	var data RoleRequestRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoleRequestRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.HasAllowedRole(data.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "role already allowed for this account"})
	}

	api.svc.Dispatch(school.RequestRole{UserID: ctxUsr.ID, Role: data.Role, Reason: data.Reason})
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "Role request submitted for review."})
}

func (api *userApi) queryRoleRequests(ctx echo.Context) error {
	state := api.svc.State()
	reqs := state.RoleRequests
	if reqs == nil {
		reqs = []school.RoleRequest{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *userApi) resolveRoleRequest(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	state := api.svc.State()
	var req school.RoleRequest
	var found bool
	for _, r := range state.RoleRequests {
		if r.ID == ctx.Param("id") {
			req, found = r, true
			break
		}
	}
	if !found {
		return errHttpNotFound
	}
	if data.Approve && !school.CanApproveRole(ctxUsr.Role, req.RequestedRole) {
		return errHttpForbidden
	}

	api.svc.Dispatch(school.ResolveRoleRequest{RequestID: req.ID, Approve: data.Approve})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) query(ctx echo.Context) error {
	state := api.svc.State()
	users := make([]school.User, 0, len(state.Users))
	for _, usr := range state.Users {
		usr.Password = ""
		users = append(users, usr)
	}
	return ctx.JSON(http.StatusOK, users)
}

// create is an admin-initiated account creation; the account comes up active
// with its role-specific fields pre-filled.
func (api *userApi) create(ctx echo.Context) error {
	var data NewUserRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUserRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.svc.CheckEmailUniqueness(data.Email); err != nil {
		return err
	}

	// ctxUser cannot create a role above their own
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if school.RolePriority(data.Role) > school.RolePriority(ctxUsr.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToApprove})
	}

	next := api.svc.Dispatch(school.AddUser{User: school.User{
		Name:      data.Name,
		Email:     data.Email,
		Password:  data.Password,
		Role:      data.Role,
		ClassID:   data.ClassID,
		Section:   data.Section,
		AnnualFee: data.AnnualFee,
		Subjects:  data.Subjects,
	}})
	for _, usr := range next.Users {
		if core.CleanString(usr.Email, true) == data.Email {
			usr.Password = ""
			return ctx.JSON(http.StatusCreated, usr)
		}
	}
	return errors.New("created user not found in state")
}

// update merges sparse updates into an account; non-staff callers may only
// edit themselves, and only their profile fields.
func (api *userApi) update(ctx echo.Context) error {
	var data UpdateUserRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUserRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id := ctx.Param("id")
	isStaff := school.RolePriority(ctxUsr.Role) >= school.RolePriority(school.RoleAdministrator)
	if id != ctxUsr.ID && !isStaff {
		return errHttpNotFound
	}
	if !isStaff {
		// financial and placement fields are staff-only
		if data.AnnualFee != nil || data.Discount != nil || data.ClassID != "" || data.Section != "" || data.Status != "" {
			return errHttpForbidden
		}
	}

	state := api.svc.State()
	if _, ok := state.FindUser(id); !ok {
		return errHttpNotFound
	}

	next := api.svc.Dispatch(school.EditUser{ID: id, Updates: school.UserUpdates{
		Name:      data.Name,
		Password:  data.Password,
		ClassID:   data.ClassID,
		Section:   data.Section,
		AnnualFee: data.AnnualFee,
		Discount:  data.Discount,
		Subjects:  data.Subjects,
		Status:    data.Status,
	}})
	usr, ok := next.FindUser(id)
	if !ok {
		return errHttpNotFound
	}
	usr.Password = ""
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	id := ctx.Param("id")
	if id == ctxUsr.ID {
		return errHttpForbidden
	}

	state := api.svc.State()
	if _, ok := state.FindUser(id); !ok {
		return errHttpNotFound
	}

	api.svc.Dispatch(school.RemoveUser{ID: id})
	return ctx.NoContent(http.StatusNoContent)
}

// approve flips a pending registration to active, merging the financial and
// placement fields submitted with the approval.
func (api *userApi) approve(ctx echo.Context) error {
	var data UpdateUserRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUserRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	target, err := api.resolvePending(ctx)
	if err != nil {
		return err
	}

	next := api.svc.Dispatch(school.ApproveUser{ID: target.ID, Updates: school.UserUpdates{
		ClassID:   data.ClassID,
		Section:   data.Section,
		AnnualFee: data.AnnualFee,
		Discount:  data.Discount,
		Subjects:  data.Subjects,
	}})
	usr, ok := next.FindUser(target.ID)
	if !ok {
		return errHttpNotFound
	}
	usr.Password = ""
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) reject(ctx echo.Context) error {
	target, err := api.resolvePending(ctx)
	if err != nil {
		return err
	}
	api.svc.Dispatch(school.RejectUser{ID: target.ID})
	return ctx.NoContent(http.StatusNoContent)
}

// resolvePending fetches the pending account at :id and checks the caller
// sits high enough in the approval hierarchy to resolve it.
func (api *userApi) resolvePending(ctx echo.Context) (school.User, error) {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return school.User{}, errors.Wrap(err, "getting context user")
	}

	state := api.svc.State()
	target, ok := state.FindUser(ctx.Param("id"))
	if !ok || target.Status != school.StatusPending {
		return school.User{}, errHttpNotFound
	}
	if !school.CanApproveRole(ctxUsr.Role, target.Role) {
		return school.User{}, errHttpForbidden
	}
	return target, nil
}

// Bindings

type (
	RegisterRequest struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Role     string `json:"role" validate:"required,role"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	SwitchRoleRequest struct {
		Role string `json:"role" validate:"required,role"`
	}

	RoleRequestRequest struct {
		Role   string `json:"role" validate:"required,role"`
		Reason string `json:"reason"`
	}

	NewUserRequest struct {
		Name      string   `json:"name" validate:"required"`
		Email     string   `json:"email" validate:"required,email"`
		Password  string   `json:"password" validate:"required,min=6"`
		Role      string   `json:"role" validate:"required,role"`
		ClassID   string   `json:"classId"`
		Section   string   `json:"section"`
		AnnualFee *float64 `json:"annualFee" validate:"omitempty,gte=0"`
		Subjects  []string `json:"subjects"`
	}

	UpdateUserRequest struct {
		Name      string   `json:"name"`
		Password  string   `json:"password" validate:"omitempty,min=6"`
		ClassID   string   `json:"classId"`
		Section   string   `json:"section"`
		AnnualFee *float64 `json:"annualFee" validate:"omitempty,gte=0"`
		Discount  *float64 `json:"discount" validate:"omitempty,gte=0"`
		Subjects  []string `json:"subjects"`
		Status    string   `json:"status" validate:"omitempty,oneof=active pending dropped_out"`
	}
)

func (r *RegisterRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *SwitchRoleRequest) Validate(validate *validator.Validate) error {
	r.Role = core.CleanString(r.Role, true /* lower */)
	return validate.Struct(r)
}

func (r *RoleRequestRequest) Validate(validate *validator.Validate) error {
	r.Role = core.CleanString(r.Role, true /* lower */)
	r.Reason = core.CleanString(r.Reason)
	return validate.Struct(r)
}

func (r *NewUserRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Role = core.CleanString(r.Role, true /* lower */)
	return validate.Struct(r)
}

func (r *UpdateUserRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	return validate.Struct(r)
}
