package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type financeApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerFinanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := financeApi{
		svc:      deps.SchoolSvc,
		validate: deps.Validate,
	}

	accountant := minRoleMiddleware(school.RoleAccountant)
	approver := financeApproverMiddleware()

	ig := g.Group("/invoices", jwt)
	ig.GET("", api.queryInvoices, accountant)
	ig.POST("", api.createInvoice, accountant)
	ig.POST("/generate", api.generateClassInvoices, accountant)
	ig.PUT("/:id/request-delete", api.requestInvoiceDelete, accountant)
	ig.PUT("/:id/resolve-delete", api.resolveInvoiceDelete, approver)

	fg := g.Group("/fees", jwt)
	fg.GET("", api.queryFees, accountant)
	fg.POST("", api.addFee, accountant)
	fg.PUT("/:id/request-delete", api.requestFeeDelete, accountant)
	fg.PUT("/:id/request-edit", api.requestFeeEdit, accountant)
	fg.PUT("/:id/resolve-delete", api.resolveFeeDelete, approver)
	fg.PUT("/:id/resolve-edit", api.resolveFeeEdit, approver)
	fg.POST("/reset-counter", api.resetReceiptCounter, minRoleMiddleware(school.RoleAdmin))

	sg := g.Group("/students/:id", jwt)
	sg.GET("/invoices", api.queryStudentInvoices)
	sg.GET("/fees", api.queryStudentFees)
}

// Handlers

func (api *financeApi) queryInvoices(ctx echo.Context) error {
	state := api.svc.State()
	invoices := state.Invoices
	if invoices == nil {
		invoices = []school.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *financeApi) createInvoice(ctx echo.Context) error {
	var data InvoiceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InvoiceRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	state := api.svc.State()
	student, ok := state.FindUser(data.StudentID)
	if !ok || !student.IsStudent() {
		return errHttpNotFound
	}

	// assign the id here so the created record is found by content, not by
	// position; concurrent dispatches may reshape the slice in between
	id := uuid.New().String()
	next := api.svc.Dispatch(school.CreateInvoice{
		ID:        id,
		StudentID: data.StudentID,
		Title:     data.Title,
		Percent:   data.Percent,
		Breakdown: data.Breakdown,
		DueDate:   data.DueDate,
	})
	if i := next.InvoiceIndex(id); i >= 0 {
		return ctx.JSON(http.StatusCreated, next.Invoices[i])
	}
	return errHttpNotFound
}

// generateClassInvoices bills every active student of the class under one
// batch; students without an annual fee are skipped.
func (api *financeApi) generateClassInvoices(ctx echo.Context) error {
	var data ClassInvoicesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassInvoicesRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// the batch stamp prefixes every generated invoice id, so the created
	// records are recovered by prefix instead of by slice position
	batch := uuid.New().String()
	next := api.svc.Dispatch(school.GenerateClassInvoices{
		Batch:     batch,
		ClassID:   data.ClassID,
		Section:   data.Section,
		Title:     data.Title,
		Percent:   data.Percent,
		Breakdown: data.Breakdown,
		DueDate:   data.DueDate,
	})
	created := []school.Invoice{}
	for _, inv := range next.Invoices {
		if strings.HasPrefix(inv.ID, batch+"-") {
			created = append(created, inv)
		}
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (api *financeApi) requestInvoiceDelete(ctx echo.Context) error {
	return api.dispatchInvoice(ctx, school.RequestInvoiceDelete{ID: ctx.Param("id")})
}

func (api *financeApi) resolveInvoiceDelete(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}

	state := api.svc.State()
	if i := state.InvoiceIndex(ctx.Param("id")); i < 0 {
		return errHttpNotFound
	}
	api.svc.Dispatch(school.ResolveInvoiceDelete{ID: ctx.Param("id"), Approve: data.Approve})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *financeApi) dispatchInvoice(ctx echo.Context, cmd school.Command) error {
	state := api.svc.State()
	id := ctx.Param("id")
	if i := state.InvoiceIndex(id); i < 0 {
		return errHttpNotFound
	}
	next := api.svc.Dispatch(cmd)
	if i := next.InvoiceIndex(id); i >= 0 {
		return ctx.JSON(http.StatusOK, next.Invoices[i])
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *financeApi) queryFees(ctx echo.Context) error {
	state := api.svc.State()
	fees := state.Fees
	if fees == nil {
		fees = []school.FeeRecord{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

// addFee records a payment: the receipt number is assigned from the global
// counter and a linked invoice is settled in full.
func (api *financeApi) addFee(ctx echo.Context) error {
	var data FeeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	state := api.svc.State()
	student, ok := state.FindUser(data.StudentID)
	if !ok || !student.IsStudent() {
		return errHttpNotFound
	}

	id := uuid.New().String()
	next := api.svc.Dispatch(school.AddFee{
		ID:          id,
		StudentID:   data.StudentID,
		Amount:      data.Amount,
		Description: data.Description,
		InvoiceID:   data.InvoiceID,
	})
	if i := next.FeeIndex(id); i >= 0 {
		return ctx.JSON(http.StatusCreated, next.Fees[i])
	}
	return errHttpNotFound
}

func (api *financeApi) requestFeeDelete(ctx echo.Context) error {
	return api.dispatchFee(ctx, school.RequestFeeDelete{ID: ctx.Param("id")})
}

func (api *financeApi) requestFeeEdit(ctx echo.Context) error {
	var data FeeEditRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeeEditRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return api.dispatchFee(ctx, school.RequestFeeEdit{
		ID:          ctx.Param("id"),
		Amount:      data.Amount,
		Description: data.Description,
	})
}

func (api *financeApi) resolveFeeDelete(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}
	return api.dispatchFee(ctx, school.ResolveFeeDelete{ID: ctx.Param("id"), Approve: data.Approve})
}

func (api *financeApi) resolveFeeEdit(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}
	return api.dispatchFee(ctx, school.ResolveFeeEdit{ID: ctx.Param("id"), Approve: data.Approve})
}

func (api *financeApi) dispatchFee(ctx echo.Context, cmd school.Command) error {
	state := api.svc.State()
	id := ctx.Param("id")
	if i := state.FeeIndex(id); i < 0 {
		return errHttpNotFound
	}
	next := api.svc.Dispatch(cmd)
	if i := next.FeeIndex(id); i >= 0 {
		return ctx.JSON(http.StatusOK, next.Fees[i])
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *financeApi) resetReceiptCounter(ctx echo.Context) error {
	var data ResetReceiptsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetReceiptsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	next := api.svc.Dispatch(school.ResetReceiptCounter{Next: data.Next})
	return ctx.JSON(http.StatusOK, echo.Map{"nextReceiptNumber": next.ReceiptCounter})
}

// queryStudentInvoices returns a student's invoices; students may only read
// their own.
func (api *financeApi) queryStudentInvoices(ctx echo.Context) error {
	studentID, err := api.resolveStudent(ctx)
	if err != nil {
		return err
	}
	state := api.svc.State()
	invoices := state.InvoicesFor(studentID)
	if invoices == nil {
		invoices = []school.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *financeApi) queryStudentFees(ctx echo.Context) error {
	studentID, err := api.resolveStudent(ctx)
	if err != nil {
		return err
	}
	state := api.svc.State()
	fees := state.FeesFor(studentID)
	if fees == nil {
		fees = []school.FeeRecord{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *financeApi) resolveStudent(ctx echo.Context) (string, error) {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}
	id := ctx.Param("id")
	if id == ctxUsr.ID {
		return id, nil
	}
	if school.RolePriority(ctxUsr.Role) >= school.RolePriority(school.RoleAccountant) {
		return id, nil
	}
	return "", errHttpNotFound
}

// Bindings

type (
	InvoiceRequest struct {
		StudentID string                    `json:"studentId" validate:"required"`
		Title     string                    `json:"title" validate:"required"`
		Percent   float64                   `json:"percent" validate:"gte=0,lte=100"`
		Breakdown []school.FeeBreakdownItem `json:"breakdown"`
		DueDate   time.Time                 `json:"dueDate"`
	}

	ClassInvoicesRequest struct {
		ClassID   string                    `json:"classId" validate:"required"`
		Section   string                    `json:"section"`
		Title     string                    `json:"title" validate:"required"`
		Percent   float64                   `json:"percent" validate:"gte=0,lte=100"`
		Breakdown []school.FeeBreakdownItem `json:"breakdown"`
		DueDate   time.Time                 `json:"dueDate"`
	}

	FeeRequest struct {
		StudentID   string  `json:"studentId" validate:"required"`
		Amount      float64 `json:"amount" validate:"gt=0"`
		Description string  `json:"description"`
		InvoiceID   string  `json:"invoiceId"`
	}

	FeeEditRequest struct {
		Amount      float64 `json:"amount" validate:"gt=0"`
		Description string  `json:"description"`
	}

	ResetReceiptsRequest struct {
		Next int `json:"next" validate:"gte=1"`
	}
)

func (r *InvoiceRequest) Validate(validate *validator.Validate) error {
	r.Title = core.CleanString(r.Title)
	return validate.Struct(r)
}

func (r *ClassInvoicesRequest) Validate(validate *validator.Validate) error {
	r.Title = core.CleanString(r.Title)
	return validate.Struct(r)
}

func (r *FeeRequest) Validate(validate *validator.Validate) error {
	r.Description = core.CleanString(r.Description)
	return validate.Struct(r)
}

func (r *FeeEditRequest) Validate(validate *validator.Validate) error {
	r.Description = core.CleanString(r.Description)
	return validate.Struct(r)
}

func (r *ResetReceiptsRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
