package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type noticeApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerNoticeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := noticeApi{
		svc:      deps.SchoolSvc,
		validate: deps.Validate,
	}

	staff := minRoleMiddleware(school.RoleAdministrator)

	ng := g.Group("/notices", jwt)
	ng.GET("", api.queryNotices)
	ng.POST("", api.postNotice, staff)
	ng.DELETE("/:id", api.destroyNotice, staff)

	cg := g.Group("/classes", jwt)
	cg.GET("", api.queryClasses)
	cg.PUT("/:name", api.addClass, staff)
	cg.DELETE("/:name", api.destroyClass, staff)

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.querySubjects)
	sg.PUT("/:name", api.addSubject, staff)
	sg.DELETE("/:name", api.destroySubject, staff)

	wg := g.Group("/worklogs", jwt)
	wg.GET("", api.queryWorkLogs)
	wg.POST("", api.addWorkLog)
	wg.DELETE("/:id", api.destroyWorkLog)
}

// Handlers

// queryNotices returns the notices visible to the caller's active role.
func (api *noticeApi) queryNotices(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	state := api.svc.State()
	notices := state.NoticesFor(claims.Role)
	if notices == nil {
		notices = []school.Notice{}
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *noticeApi) postNotice(ctx echo.Context) error {
	var data NoticeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NoticeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id := uuid.New().String()
	next := api.svc.Dispatch(school.PostNotice{
		ID:       id,
		Title:    data.Title,
		Body:     data.Body,
		Audience: data.Audience,
		PostedBy: ctxUsr.Name,
	})
	for _, n := range next.Notices {
		if n.ID == id {
			return ctx.JSON(http.StatusCreated, n)
		}
	}
	return errHttpNotFound
}

func (api *noticeApi) destroyNotice(ctx echo.Context) error {
	state := api.svc.State()
	var found bool
	for _, n := range state.Notices {
		if n.ID == ctx.Param("id") {
			found = true
			break
		}
	}
	if !found {
		return errHttpNotFound
	}
	api.svc.Dispatch(school.DeleteNotice{ID: ctx.Param("id")})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *noticeApi) queryClasses(ctx echo.Context) error {
	state := api.svc.State()
	classes := state.Classes
	if classes == nil {
		classes = []school.SystemClass{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *noticeApi) addClass(ctx echo.Context) error {
	var data ClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassRequest")
	}

	name := core.CleanString(ctx.Param("name"))
	if name == "" {
		return errHttpNotFound
	}
	next := api.svc.Dispatch(school.AddClass{Name: name, Sections: data.Sections})
	for _, c := range next.Classes {
		if c.Name == name {
			return ctx.JSON(http.StatusOK, c)
		}
	}
	return errHttpNotFound
}

func (api *noticeApi) destroyClass(ctx echo.Context) error {
	api.svc.Dispatch(school.DeleteClass{Name: ctx.Param("name")})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *noticeApi) querySubjects(ctx echo.Context) error {
	state := api.svc.State()
	subjects := state.Subjects
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *noticeApi) addSubject(ctx echo.Context) error {
	name := core.CleanString(ctx.Param("name"))
	if name == "" {
		return errHttpNotFound
	}
	api.svc.Dispatch(school.AddSubject{Name: name})
	return ctx.JSON(http.StatusOK, school.Subject{Name: name})
}

func (api *noticeApi) destroySubject(ctx echo.Context) error {
	api.svc.Dispatch(school.DeleteSubject{Name: ctx.Param("name")})
	return ctx.NoContent(http.StatusNoContent)
}

// queryWorkLogs returns the caller's own logs; staff see everyone's.
func (api *noticeApi) queryWorkLogs(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	isStaff := school.RolePriority(ctxUsr.Role) >= school.RolePriority(school.RoleAdministrator)
	state := api.svc.State()
	logs := []school.WorkLog{}
	for _, wl := range state.WorkLogs {
		if isStaff || wl.UserID == ctxUsr.ID {
			logs = append(logs, wl)
		}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *noticeApi) addWorkLog(ctx echo.Context) error {
	var data WorkLogRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WorkLogRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id := uuid.New().String()
	next := api.svc.Dispatch(school.AddWorkLog{
		ID:      id,
		UserID:  ctxUsr.ID,
		Summary: data.Summary,
		Hours:   data.Hours,
		Date:    data.Date,
	})
	for _, wl := range next.WorkLogs {
		if wl.ID == id {
			return ctx.JSON(http.StatusCreated, wl)
		}
	}
	return errHttpNotFound
}

func (api *noticeApi) destroyWorkLog(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	state := api.svc.State()
	var target school.WorkLog
	var found bool
	for _, wl := range state.WorkLogs {
		if wl.ID == ctx.Param("id") {
			target, found = wl, true
			break
		}
	}
	if !found {
		return errHttpNotFound
	}
	isStaff := school.RolePriority(ctxUsr.Role) >= school.RolePriority(school.RoleAdministrator)
	if target.UserID != ctxUsr.ID && !isStaff {
		return errHttpForbidden
	}

	api.svc.Dispatch(school.DeleteWorkLog{ID: target.ID})
	return ctx.NoContent(http.StatusNoContent)
}

// Bindings

type (
	NoticeRequest struct {
		Title    string `json:"title" validate:"required"`
		Body     string `json:"body" validate:"required"`
		Audience string `json:"audience" validate:"required,audience"`
	}

	ClassRequest struct {
		Sections []string `json:"sections"`
	}

	WorkLogRequest struct {
		Summary string    `json:"summary" validate:"required"`
		Hours   float64   `json:"hours" validate:"gte=0,lte=24"`
		Date    time.Time `json:"date"`
	}
)

func (r *NoticeRequest) Validate(validate *validator.Validate) error {
	r.Title = core.CleanString(r.Title)
	r.Audience = core.CleanString(r.Audience, true /* lower */)
	return validate.Struct(r)
}

func (r *WorkLogRequest) Validate(validate *validator.Validate) error {
	r.Summary = core.CleanString(r.Summary)
	if r.Date.IsZero() {
		r.Date = time.Now().UTC()
	}
	return validate.Struct(r)
}
