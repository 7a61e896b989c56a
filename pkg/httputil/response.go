package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/validator"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Error   string                 `json:"error,omitempty"`
	Errors  []validator.FieldError `json:"errors,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// Page wraps one page of items
type Page struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// RespondWithSuccess sends a 200 success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: StatusSuccess, Data: data})
}

// RespondCreated sends a 201 success response
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Status: StatusSuccess, Data: data})
}

// RespondWithMessage sends a 200 response with a message and no data
func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{Status: StatusSuccess, Message: message})
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, items interface{}, page, pageSize int, total int64) {
	var totalPages int64
	if pageSize > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	RespondWithSuccess(c, Page{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// RespondWithError maps err to a status code and error body. Internal
// errors are logged and replaced by a generic message.
func RespondWithError(c *gin.Context, err error) {
	status, body := ErrorBody(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString("request_id")).
			Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// ErrorBody builds the status and response body for err.
func ErrorBody(err error) (int, ErrorResponse) {
	var verr *validator.Error
	if appErr, ok := errors.As(err); ok {
		status := appErr.Status()
		body := ErrorResponse{Status: StatusError, Message: appErr.Message}
		if status >= http.StatusInternalServerError {
			body.Message = "internal server error"
			body.Error = "internal error"
			return status, body
		}
		if appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
		if asValidation(appErr.Err, &verr) {
			body.Errors = verr.Fields
		}
		return status, body
	}
	if asValidation(err, &verr) {
		return http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "validation failed",
			Error:   verr.Error(),
			Errors:  verr.Fields,
		}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Status:  StatusError,
		Message: "internal server error",
		Error:   "internal error",
	}
}

func asValidation(err error, target **validator.Error) bool {
	return err != nil && stderrors.As(err, target)
}

// BindJSON decodes the request body into obj and runs its binding rules.
// Rule failures come back as a validation error with field details.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs govalidator.ValidationErrors
		if stderrors.As(err, &verrs) {
			return errors.Validation(validator.FromValidationErrors(verrs))
		}
		return errors.BadRequest("invalid request body", err)
	}
	return nil
}
