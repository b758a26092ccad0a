package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	er "github.com/mcorbin/corbierror"
	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
)

// CorrelateDeployment scores one deployment against every SLO of its
// service, or against another service's SLO in cross-service mode.
func (b *Builder) CorrelateDeployment(ec echo.Context) error {
	id := ec.Param("id")
	deployment, err := b.deployments.GetDeployment(ec.Request().Context(), id)
	if err != nil {
		return err
	}

	affected := ec.QueryParam("affected-service")
	if affected != "" && affected != deployment.Service {
		return b.correlateCrossService(ec, *deployment, affected)
	}

	slos, err := b.slo.GetSLOsByService(ec.Request().Context(), deployment.Service)
	if err != nil {
		return err
	}
	results := []aggregates.CorrelationResult{}
	for _, sloDef := range slos {
		result, err := b.correlation.Correlate(ec.Request().Context(), *deployment, *sloDef)
		if err != nil {
			return err
		}
		results = append(results, *result)
	}
	return ec.JSON(http.StatusOK, results)
}

func (b *Builder) correlateCrossService(ec echo.Context, deployment aggregates.Deployment, affected string) error {
	observedAt := time.Now().UTC()
	if raw := ec.QueryParam("observed-at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return er.New("invalid observed-at parameter, expected RFC3339", er.BadRequest, true)
		}
		observedAt = parsed
	}
	slos, err := b.slo.GetSLOsByService(ec.Request().Context(), affected)
	if err != nil {
		return err
	}
	results := []aggregates.CorrelationResult{}
	for _, sloDef := range slos {
		result, err := b.correlation.AttributeCrossService(ec.Request().Context(), deployment, *sloDef, observedAt)
		if err != nil {
			return err
		}
		results = append(results, *result)
	}
	return ec.JSON(http.StatusOK, results)
}

// CorrelateService scores every recent (deployment, SLO) pair of a service.
func (b *Builder) CorrelateService(ec echo.Context) error {
	service := ec.Param("service")
	hours, err := parseHours(ec.QueryParam("lookback-hours"), 168)
	if err != nil {
		return err
	}
	results, err := b.correlation.CorrelateService(ec.Request().Context(), service, hours)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, results)
}
