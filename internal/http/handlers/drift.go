package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	er "github.com/mcorbin/corbierror"
	"github.com/rsionnach/nthlayer/pkg/drift"
	"github.com/rsionnach/nthlayer/pkg/slo"
)

// ServiceDrift analyzes every SLO of a service and returns the drift reports.
func (b *Builder) ServiceDrift(ec echo.Context) error {
	service := ec.Param("service")
	results, err := b.drift.AnalyzeService(ec.Request().Context(), service)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, results)
}

func (b *Builder) SLODrift(ec echo.Context) error {
	name := ec.Param("slo")
	sloDef, err := b.slo.GetSLOByName(ec.Request().Context(), name)
	if err != nil {
		return err
	}
	window, err := parseWindowParam(ec.QueryParam("window"))
	if err != nil {
		return err
	}
	result, err := b.drift.Analyze(ec.Request().Context(), *sloDef, window)
	if err != nil {
		var insufficient *drift.InsufficientDataError
		if errors.As(err, &insufficient) {
			return er.New(insufficient.Error(), er.BadRequest, true)
		}
		return err
	}
	return ec.JSON(http.StatusOK, result)
}

func parseWindowParam(raw string) (window time.Duration, err error) {
	if raw == "" {
		return 0, nil
	}
	window, err = slo.ParseWindow(raw)
	if err != nil {
		return 0, er.New("invalid window parameter", er.BadRequest, true)
	}
	return window, nil
}
