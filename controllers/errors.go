package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yeremiapane/grocery-store/middlewares"
	"github.com/yeremiapane/grocery-store/services"
	"github.com/yeremiapane/grocery-store/utils"
)

func init() {
	// Report validation failures under their JSON names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// respondServiceError maps the service error taxonomy onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var rule *services.RuleViolationError

	switch {
	case errors.As(err, &validation):
		utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", validation.Fields)
	case errors.As(err, &rule):
		c.JSON(http.StatusBadRequest, utils.JSONResponse{
			Status:  false,
			Message: rule.Reason,
			Data:    gin.H{"code": rule.Code},
		})
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrForbidden):
		utils.RespondError(c, http.StatusForbidden, err)
	default:
		utils.ErrorLogger.WithError(err).WithField("path", c.FullPath()).Error("Unhandled service error")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

// respondBindingError flattens gin binding failures into per-field messages.
func respondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fieldMessage(fe)
		}
		utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", fields)
	case errors.As(err, &typeErr):
		utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", map[string]string{
			typeErr.Field: fmt.Sprintf("must be a %s", typeErr.Type.String()),
		})
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		utils.RespondError(c, http.StatusBadRequest, errors.New("request body must be valid JSON"))
	default:
		utils.RespondError(c, http.StatusBadRequest, err)
	}
}

// fieldPath drops the root struct name: "createOrderRequest.items[0].product" -> "items[0].product".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

// bindOptionalJSON binds the body when there is one; an empty body is not an error.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", map[string]string{
			"id": "must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: c.GetUint(middlewares.ContextUserID),
		Role:   c.GetString(middlewares.ContextRole),
	}
}
