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

type academicsApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerAcademicsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := academicsApi{
		svc:      deps.SchoolSvc,
		validate: deps.Validate,
	}

	teacher := anyRoleMiddleware(
		school.RoleTeacher, school.RoleAdministrator, school.RoleAdmin, school.RoleDeveloper,
	)
	staff := minRoleMiddleware(school.RoleAdministrator)

	ag := g.Group("/assignments", jwt)
	ag.GET("", api.queryAssignments)
	ag.POST("", api.createAssignment, teacher)
	ag.DELETE("/:id", api.destroyAssignment, teacher)
	ag.POST("/:id/submissions", api.submitAssignment, anyRoleMiddleware(school.RoleStudent))
	ag.GET("/:id/submissions", api.querySubmissions, teacher)

	g.PUT("/submissions/:id/grade", api.gradeSubmission, jwt, teacher)

	eg := g.Group("/exam-sessions", jwt)
	eg.GET("", api.querySessions)
	eg.POST("", api.createSession, staff)
	eg.PUT("/:id/status", api.setSessionStatus, staff)
	eg.PUT("/:id/publish", api.publishClassResult, staff)

	g.POST("/marks", api.enterMark, jwt, teacher)
	g.GET("/students/:id/reports", api.queryStudentReports, jwt)
}

// Handlers

// queryAssignments scopes the list to the caller: students see their class's
// assignments, teachers see their own, staff see everything.
func (api *academicsApi) queryAssignments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	state := api.svc.State()
	assignments := make([]school.Assignment, 0, len(state.Assignments))
	for _, a := range state.Assignments {
		switch {
		case ctxUsr.IsStudent():
			if a.ClassID != ctxUsr.ClassID {
				continue
			}
			if a.Section != "" && a.Section != ctxUsr.Section {
				continue
			}
		case ctxUsr.IsTeacher():
			if a.TeacherID != ctxUsr.ID {
				continue
			}
		}
		assignments = append(assignments, a)
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *academicsApi) createAssignment(ctx echo.Context) error {
	var data AssignmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignmentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id := uuid.New().String()
	next := api.svc.Dispatch(school.CreateAssignment{
		ID:          id,
		Title:       data.Title,
		Description: data.Description,
		Subject:     data.Subject,
		ClassID:     data.ClassID,
		Section:     data.Section,
		TeacherID:   ctxUsr.ID,
		DueDate:     data.DueDate,
	})
	for _, a := range next.Assignments {
		if a.ID == id {
			return ctx.JSON(http.StatusCreated, a)
		}
	}
	return errHttpNotFound
}

func (api *academicsApi) destroyAssignment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	state := api.svc.State()
	var target school.Assignment
	var found bool
	for _, a := range state.Assignments {
		if a.ID == ctx.Param("id") {
			target, found = a, true
			break
		}
	}
	if !found {
		return errHttpNotFound
	}
	// teachers may only delete their own assignments
	if ctxUsr.IsTeacher() && target.TeacherID != ctxUsr.ID {
		return errHttpForbidden
	}

	api.svc.Dispatch(school.DeleteAssignment{ID: target.ID})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) submitAssignment(ctx echo.Context) error {
	var data SubmissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmissionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	next := api.svc.Dispatch(school.SubmitAssignment{
		AssignmentID: ctx.Param("id"),
		StudentID:    ctxUsr.ID,
		Content:      data.Content,
	})
	for _, sub := range next.Submissions {
		if sub.AssignmentID == ctx.Param("id") && sub.StudentID == ctxUsr.ID {
			return ctx.JSON(http.StatusCreated, sub)
		}
	}
	return errHttpNotFound
}

func (api *academicsApi) querySubmissions(ctx echo.Context) error {
	state := api.svc.State()
	submissions := []school.Submission{}
	for _, sub := range state.Submissions {
		if sub.AssignmentID == ctx.Param("id") {
			submissions = append(submissions, sub)
		}
	}
	return ctx.JSON(http.StatusOK, submissions)
}

func (api *academicsApi) gradeSubmission(ctx echo.Context) error {
	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	next := api.svc.Dispatch(school.GradeSubmission{
		ID:       ctx.Param("id"),
		Grade:    data.Grade,
		Feedback: data.Feedback,
	})
	for _, sub := range next.Submissions {
		if sub.ID == ctx.Param("id") {
			return ctx.JSON(http.StatusOK, sub)
		}
	}
	return errHttpNotFound
}

func (api *academicsApi) querySessions(ctx echo.Context) error {
	state := api.svc.State()
	sessions := state.ExamSessions
	if sessions == nil {
		sessions = []school.ExamSession{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *academicsApi) createSession(ctx echo.Context) error {
	var data SessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id := uuid.New().String()
	next := api.svc.Dispatch(school.CreateExamSession{ID: id, Name: data.Name})
	if session, ok := next.FindSession(id); ok {
		return ctx.JSON(http.StatusCreated, session)
	}
	return errHttpNotFound
}

func (api *academicsApi) setSessionStatus(ctx echo.Context) error {
	var data SessionStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionStatusRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	state := api.svc.State()
	if _, ok := state.FindSession(ctx.Param("id")); !ok {
		return errHttpNotFound
	}
	next := api.svc.Dispatch(school.SetExamSessionStatus{ID: ctx.Param("id"), Status: data.Status})
	session, _ := next.FindSession(ctx.Param("id"))
	return ctx.JSON(http.StatusOK, session)
}

// enterMark merges one subject score into the student's report for an open
// session; the report is created lazily on first entry.
func (api *academicsApi) enterMark(ctx echo.Context) error {
	var data MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	state := api.svc.State()
	session, ok := state.FindSession(data.ExamSessionID)
	if !ok {
		return errHttpNotFound
	}
	if !session.IsOpen() {
		return core.NewValidationError(nil, core.FieldError{Field: "examSessionId", Error: "exam session is closed"})
	}
	if student, ok := state.FindUser(data.StudentID); !ok || !student.IsStudent() {
		return errHttpNotFound
	}

	next := api.svc.Dispatch(school.EnterMark{
		ExamSessionID: data.ExamSessionID,
		StudentID:     data.StudentID,
		Subject:       data.Subject,
		Score: school.SubjectScore{
			Obtained:  data.Obtained,
			FullMarks: data.FullMarks,
			PassMarks: data.PassMarks,
		},
	})
	for _, r := range next.ExamReports {
		if r.StudentID == data.StudentID && r.ExamSessionID == data.ExamSessionID {
			return ctx.JSON(http.StatusOK, r)
		}
	}
	return errHttpNotFound
}

// publishClassResult flips the published flag on every report of the class
// linked to the session.
func (api *academicsApi) publishClassResult(ctx echo.Context) error {
	var data PublishRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	state := api.svc.State()
	session, ok := state.FindSession(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}

	api.svc.Dispatch(school.PublishClassResult{
		ExamSessionID: session.ID,
		SessionName:   session.Name,
		ClassID:       data.ClassID,
		Section:       data.Section,
		Published:     data.Published,
	})
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Class result updated."})
}

// queryStudentReports returns a student's scorecards; students read their own
// published reports, staff and teachers see everything.
func (api *academicsApi) queryStudentReports(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id := ctx.Param("id")
	isStaff := school.RolePriority(ctxUsr.Role) >= school.RolePriority(school.RoleTeacher)
	if id != ctxUsr.ID && !isStaff {
		return errHttpNotFound
	}

	state := api.svc.State()
	reports := state.ReportsFor(id, isStaff)
	if reports == nil {
		reports = []school.ExamReport{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

// Bindings

type (
	AssignmentRequest struct {
		Title       string    `json:"title" validate:"required"`
		Description string    `json:"description"`
		Subject     string    `json:"subject" validate:"required"`
		ClassID     string    `json:"classId" validate:"required"`
		Section     string    `json:"section"`
		DueDate     time.Time `json:"dueDate"`
	}

	SubmissionRequest struct {
		Content string `json:"content" validate:"required"`
	}

	GradeRequest struct {
		Grade    string `json:"grade" validate:"required"`
		Feedback string `json:"feedback"`
	}

	SessionRequest struct {
		Name string `json:"name" validate:"required"`
	}

	SessionStatusRequest struct {
		Status string `json:"status" validate:"required,oneof=open closed"`
	}

	MarkRequest struct {
		ExamSessionID string  `json:"examSessionId" validate:"required"`
		StudentID     string  `json:"studentId" validate:"required"`
		Subject       string  `json:"subject" validate:"required"`
		Obtained      float64 `json:"obtained" validate:"gte=0"`
		FullMarks     float64 `json:"fullMarks" validate:"gt=0"`
		PassMarks     float64 `json:"passMarks" validate:"gte=0"`
	}

	PublishRequest struct {
		ClassID   string `json:"classId" validate:"required"`
		Section   string `json:"section"`
		Published bool   `json:"published"`
	}
)

func (r *AssignmentRequest) Validate(validate *validator.Validate) error {
	r.Title = core.CleanString(r.Title)
	r.Subject = core.CleanString(r.Subject)
	return validate.Struct(r)
}

func (r *SubmissionRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *GradeRequest) Validate(validate *validator.Validate) error {
	r.Grade = core.CleanString(r.Grade)
	r.Feedback = core.CleanString(r.Feedback)
	return validate.Struct(r)
}

func (r *SessionRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	return validate.Struct(r)
}

func (r *SessionStatusRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *MarkRequest) Validate(validate *validator.Validate) error {
	r.Subject = core.CleanString(r.Subject)
	return validate.Struct(r)
}

func (r *PublishRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
