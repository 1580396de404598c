package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/healthythako/payment-redirect/internal/app/api/server"
	"github.com/healthythako/payment-redirect/internal/app/service/auditlog"
	"github.com/healthythako/payment-redirect/internal/app/service/deeplink"
	"github.com/healthythako/payment-redirect/internal/app/service/redirect"
	"github.com/healthythako/payment-redirect/internal/app/service/verification"
	"github.com/healthythako/payment-redirect/internal/platform/db"
	"github.com/healthythako/payment-redirect/pkg/config"
	"github.com/healthythako/payment-redirect/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	verification.Module,
	deeplink.Module,
	auditlog.Module,
	redirect.Module,
)
