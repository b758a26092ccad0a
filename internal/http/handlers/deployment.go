package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	er "github.com/mcorbin/corbierror"
	"github.com/rsionnach/nthlayer/internal/util"
	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
)

type CreateDeploymentPayload struct {
	Service     string    `json:"service" validate:"required"`
	Environment string    `json:"environment"`
	DeployedAt  time.Time `json:"deployed_at" validate:"required"`
	CommitSHA   string    `json:"commit_sha"`
	Author      string    `json:"author"`
}

func (b *Builder) CreateDeployment(ec echo.Context) error {
	var payload CreateDeploymentPayload
	if err := ec.Bind(&payload); err != nil {
		return err
	}
	if err := ec.Validate(payload); err != nil {
		return err
	}
	deployment := aggregates.Deployment{
		ID:          util.NewUUID(),
		Service:     payload.Service,
		Environment: payload.Environment,
		DeployedAt:  payload.DeployedAt.UTC(),
		CommitSHA:   payload.CommitSHA,
		Author:      payload.Author,
	}
	err := b.deployments.CreateDeployment(ec.Request().Context(), deployment)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, deployment)
}

func (b *Builder) ListDeployments(ec echo.Context) error {
	service := ec.Param("service")
	hours, err := parseHours(ec.QueryParam("hours"), 168)
	if err != nil {
		return err
	}
	deployments, err := b.deployments.GetRecentDeployments(ec.Request().Context(), service, hours, ec.QueryParam("environment"))
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, deployments)
}

func parseHours(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0, er.New("invalid hours parameter", er.BadRequest, true)
	}
	return hours, nil
}
