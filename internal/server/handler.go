package server

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/limaJavier/seating/pkg/milp"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/limaJavier/seating/pkg/report"
	"github.com/rs/zerolog"
)

type planRequest struct {
	model.Input
	TimeLimitSeconds float64  `json:"time_limit_seconds"`
	MaxGap           *float64 `json:"max_gap"`
}

type planResponse struct {
	ID     string          `json:"id"`
	Report report.Document `json:"report"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type planHandler struct {
	planner      *model.Planner
	limits       milp.Limits
	maxTimeLimit time.Duration
	logger       zerolog.Logger
}

func health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (handler *planHandler) createPlan(c echo.Context) error {
	var request planRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", Detail: err.Error()})
	}
	if request.TimeLimitSeconds < 0 || (request.MaxGap != nil && *request.MaxGap < 0) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid limits", Detail: "time_limit_seconds and max_gap must not be negative"})
	}

	id := uuid.NewString()
	logger := handler.logger.With().Str("plan", id).Logger()
	ctx := logger.WithContext(c.Request().Context())

	plan, err := handler.planner.Plan(ctx, request.Input, handler.requestLimits(request))
	if err != nil {
		status, body := errorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error().Err(err).Msg("planning failed")
		}
		return c.JSON(status, body)
	}
	if !handler.planner.Verify(plan) {
		logger.Error().Msg("planned seating violates the seating rules")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "verification failed"})
	}

	return c.JSON(http.StatusOK, planResponse{ID: id, Report: report.Build(plan)})
}

func (handler *planHandler) requestLimits(request planRequest) milp.Limits {
	limits := handler.limits
	if seconds := request.TimeLimitSeconds; seconds > 0 {
		// Seconds are compared before the conversion, which overflows past math.MaxInt64 nanoseconds
		switch {
		case handler.maxTimeLimit > 0 && seconds >= handler.maxTimeLimit.Seconds():
			limits.TimeLimit = handler.maxTimeLimit
		case seconds >= float64(math.MaxInt64)/float64(time.Second):
			limits.TimeLimit = time.Duration(math.MaxInt64)
		default:
			limits.TimeLimit = time.Duration(seconds * float64(time.Second))
		}
	}
	if handler.maxTimeLimit > 0 && (limits.TimeLimit == 0 || limits.TimeLimit > handler.maxTimeLimit) {
		limits.TimeLimit = handler.maxTimeLimit
	}
	if request.MaxGap != nil {
		limits.MaxGap = *request.MaxGap
	}
	return limits
}

func errorStatus(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, model.ErrInvalidLayout):
		return http.StatusBadRequest, errorResponse{Error: model.ErrInvalidLayout.Error(), Detail: err.Error()}
	case errors.Is(err, model.ErrInvalidDemand):
		return http.StatusBadRequest, errorResponse{Error: model.ErrInvalidDemand.Error(), Detail: err.Error()}
	case errors.Is(err, model.ErrInfeasible):
		return http.StatusUnprocessableEntity, errorResponse{Error: "infeasible", Detail: err.Error()}
	case errors.Is(err, milp.ErrSolverUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: "solver unavailable", Detail: err.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}
