package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	csvparser "usersapi/internal/adapter/csv"
	. "usersapi/internal/adapter/http/helper"
	. "usersapi/internal/adapter/http/validation"
	"usersapi/internal/core/domain"
	"usersapi/internal/core/model/request"
	"usersapi/internal/core/model/response"
	"usersapi/internal/core/port"
	"usersapi/pkg/config"
	. "usersapi/pkg/tracing"
)

const (
	uploadField       = "file"
	notCSVMessage     = "Uploaded file is not a CSV file."
	defaultUploadSize = 10 << 20
)

type UserHandlerConfig struct {
	DefaultPageLimit   int
	ImportMaxFileBytes int64
}

type UserHandler struct {
	svc    port.UserService
	Logger *config.LokiLogger
	cfg    UserHandlerConfig
}

func NewUserHandler(svc port.UserService, logger *config.LokiLogger, cfg UserHandlerConfig) *UserHandler {
	if logger == nil {
		logger = config.NewNopLokiLogger()
	}

	if cfg.DefaultPageLimit < 1 {
		cfg.DefaultPageLimit = domain.DefaultLimit
	}

	if cfg.ImportMaxFileBytes <= 0 {
		cfg.ImportMaxFileBytes = defaultUploadSize
	}

	return &UserHandler{
		svc:    svc,
		Logger: logger,
		cfg:    cfg,
	}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var params request.CreateUserRequest

	if err := c.ShouldBindJSON(&params); err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	user, err := params.ToUser()
	if err != nil {
		SendServiceError(c, err)
		return
	}

	created, err := h.svc.Create(ctx, user)
	if err != nil {
		h.logFailure(ctx, "Failed to create user", err)
		SendServiceError(c, err)
		return
	}

	SendSuccess(c, http.StatusCreated, response.NewUserResponse(created))
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.user.ListUsers", []attribute.KeyValue{
		attribute.String("handler.operation", "ListUsers"),
		attribute.String("handler.path", c.FullPath()),
	})
	defer span.End()

	var params request.ListUsersQuery

	if err := c.ShouldBindQuery(&params); err != nil {
		SendBadRequestError(c, "query", "Invalid query parameters")
		return
	}

	query, err := params.ToQuerySpec(h.cfg.DefaultPageLimit)
	if err != nil {
		AddSpanError(span, err)
		SendServiceError(c, err)
		return
	}

	page, err := h.svc.List(ctx, query)
	if err != nil {
		AddSpanError(span, err)
		h.logFailure(ctx, "Failed to list users", err)
		SendServiceError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("response.size", len(page.Data)))

	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := userID(c)
	if !ok {
		return
	}

	var params request.UpdateUserRequest

	if err := c.ShouldBindJSON(&params); err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	patch, err := params.ToPatch()
	if err != nil {
		SendServiceError(c, err)
		return
	}

	updated, err := h.svc.Update(ctx, id, patch)
	if err != nil {
		h.logFailure(ctx, "Failed to update user", err, zap.String("user_uuid", id))
		SendServiceError(c, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewUserResponse(updated))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := userID(c)
	if !ok {
		return
	}

	deleted, err := h.svc.Delete(ctx, id)
	if err != nil {
		h.logFailure(ctx, "Failed to delete user", err, zap.String("user_uuid", id))
		SendServiceError(c, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewUserResponse(deleted))
}

// UploadUsers ingests a CSV file. Row failures are reported in the body; the
// request itself only fails when the file is missing, too large or unreadable.
func (h *UserHandler) UploadUsers(c *gin.Context) {
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.ImportMaxFileBytes+(1<<20))

	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			SendError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", []response.ValidationError{
				{Field: uploadField, Message: "Uploaded file exceeds the size limit."},
			})
			return
		}

		SendUnprocessableError(c, uploadField, notCSVMessage)
		return
	}

	if !isCSV(header.Header.Get("Content-Type")) {
		SendUnprocessableError(c, uploadField, notCSVMessage)
		return
	}

	if header.Size > h.cfg.ImportMaxFileBytes {
		SendError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", []response.ValidationError{
			{Field: uploadField, Message: "Uploaded file exceeds the size limit."},
		})
		return
	}

	var records []domain.RawUserRecord

	err = HandlerSpanWrapper(ctx, "user", "parse_csv", func(ctx context.Context) error {
		file, err := header.Open()
		if err != nil {
			return err
		}
		defer file.Close()

		records, err = csvparser.Parse(file)
		return err
	})

	if err != nil {
		h.logFailure(ctx, "Failed to parse uploaded file", err, zap.String("filename", header.Filename))
		SendBadRequestError(c, uploadField, err.Error())
		return
	}

	outcome := h.svc.Import(ctx, records)

	h.Logger.InfoWithTrace(ctx, "Users imported",
		zap.String("filename", header.Filename),
		zap.Int("success_count", outcome.SuccessCount),
		zap.Int("failed_count", outcome.FailedCount),
	)

	c.JSON(http.StatusCreated, outcome)
}

func (h *UserHandler) Health(c *gin.Context) {
	if err := h.svc.Health(c.Request.Context()); err != nil {
		h.logFailure(c.Request.Context(), "Health check failed", err)
		c.JSON(http.StatusServiceUnavailable, response.HealthResponse{Status: "unavailable"})
		return
	}

	c.JSON(http.StatusOK, response.HealthResponse{Status: "ok"})
}

func (h *UserHandler) logFailure(ctx context.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidQuery) {
		h.Logger.InfoWithTrace(ctx, msg, fields...)
		return
	}

	h.Logger.ErrorWithTrace(ctx, msg, fields...)
}

// userID reads the :id path parameter and rejects anything that is not a UUID.
func userID(c *gin.Context) (string, bool) {
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		SendBadRequestError(c, "id", "id must be a valid UUID")
		return "", false
	}

	return id, true
}

func isCSV(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/csv")
}
