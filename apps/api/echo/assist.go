package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

type assistApi struct {
	svc      core.TextGenService
	validate *validator.Validate
}

func registerAssistAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assistApi{
		svc:      deps.TextGenSvc,
		validate: deps.Validate,
	}

	g.POST("/assist/generate", api.generate, jwt)
}

// generate drafts text (notice bodies, assignment descriptions) from a
// prompt. Degrades to 503 when the backing service is not configured.
func (api *assistApi) generate(ctx echo.Context) error {
	var data AssistRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssistRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	text, err := api.svc.Generate(ctx.Request().Context(), data.Prompt)
	if err != nil {
		if errors.Cause(err) == core.ErrTextGenUnavailable {
			return errSvcUnavailable
		}
		return errors.Wrap(err, "generating text")
	}
	return ctx.JSON(http.StatusOK, AssistResponse{Text: text})
}

// Bindings

type (
	AssistRequest struct {
		Prompt string `json:"prompt" validate:"required"`
	}

	AssistResponse struct {
		Text string `json:"text"`
	}
)

func (r *AssistRequest) Validate(validate *validator.Validate) error {
	r.Prompt = core.CleanString(r.Prompt)
	return validate.Struct(r)
}
