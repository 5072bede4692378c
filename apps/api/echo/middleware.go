package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/school"
)

// minRoleMiddleware allows users whose active role sits at or above the given
// role in the hierarchy.
func minRoleMiddleware(role string) echo.MiddlewareFunc {
	min := school.RolePriority(role)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if school.RolePriority(claims.Role) >= min {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// anyRoleMiddleware allows users whose active role is one of the given roles.
func anyRoleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// financeApproverMiddleware allows only roles that may resolve financial
// delete/edit requests. Accountants can raise them but not resolve them.
func financeApproverMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if school.CanApproveFinance(claims.Role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
