package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rsionnach/nthlayer/pkg/slo"
	"github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

type CreateSLOPayload struct {
	Name        string            `json:"name" validate:"required"`
	Service     string            `json:"service" validate:"required"`
	Tier        string            `json:"tier"`
	Description *string           `json:"description"`
	Labels      map[string]string `json:"labels"`
	Objective   float64           `json:"objective" validate:"required,gt=0,lte=100"`
}

func (b *Builder) CreateSLO(ec echo.Context) error {
	var payload CreateSLOPayload
	if err := ec.Bind(&payload); err != nil {
		return err
	}
	if err := ec.Validate(payload); err != nil {
		return err
	}
	sloDef := aggregates.SLO{
		Name:        payload.Name,
		Service:     payload.Service,
		Tier:        aggregates.Tier(payload.Tier),
		Description: payload.Description,
		Labels:      payload.Labels,
		Objective:   payload.Objective,
	}
	slo.InitSLO(&sloDef)
	err := b.slo.CreateSLO(ec.Request().Context(), sloDef)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, NewResponse("SLO created"))
}

func (b *Builder) GetSLO(ec echo.Context) error {
	id := ec.Param("id")
	sloDef, err := b.slo.GetSLO(ec.Request().Context(), id)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, sloDef)
}

func (b *Builder) ListSLOs(ec echo.Context) error {
	service := ec.QueryParam("service")
	if service != "" {
		slos, err := b.slo.GetSLOsByService(ec.Request().Context(), service)
		if err != nil {
			return err
		}
		return ec.JSON(http.StatusOK, slos)
	}
	slos, err := b.slo.ListSLOs(ec.Request().Context())
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, slos)
}

func (b *Builder) DeleteSLO(ec echo.Context) error {
	id := ec.Param("id")
	err := b.slo.DeleteSLO(ec.Request().Context(), id)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, NewResponse("SLO deleted"))
}

type MeasurementPayload struct {
	SLOID           string    `json:"slo_id" param:"id" validate:"required"`
	Timestamp       time.Time `json:"timestamp" validate:"required"`
	BudgetRemaining float64   `json:"budget_remaining" validate:"gte=0,lte=1"`
}

func (b *Builder) AddMeasurement(ec echo.Context) error {
	var payload MeasurementPayload
	if err := ec.Bind(&payload); err != nil {
		return err
	}
	if err := ec.Validate(payload); err != nil {
		return err
	}
	measurement := aggregates.Measurement{
		SLOID:           payload.SLOID,
		Timestamp:       payload.Timestamp,
		BudgetRemaining: payload.BudgetRemaining,
	}
	err := b.slo.AddMeasurement(ec.Request().Context(), measurement)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, NewResponse("measurement created"))
}
