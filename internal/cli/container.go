package cli

import (
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/routes/alias"
	"github.com/Ramsey-B/fern/pkg/routes/candidate"
	"github.com/Ramsey-B/fern/pkg/routes/dashboard"
	"github.com/Ramsey-B/fern/pkg/routes/employee"
	"github.com/Ramsey-B/fern/pkg/routes/match"
	"github.com/google/uuid"
)

// newContainer registers the services route handlers resolve per request.
// Each route package declares the narrow interface it needs, so the same
// service is registered once per interface.
func newContainer(a *app) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       a.cfg.AppName + "-" + uuid.NewString(),
		AllowCaptiveDependencies: true,
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{
			Enabled:  a.cfg.LogLevel == "debug",
			LogLevel: a.cfg.LogLevel,
		},
	})
	if err != nil {
		return nil, err
	}

	registrations := []func() error{
		func() error { return ectoinject.RegisterInstance[ectologger.Logger](container, a.logger) },
		func() error { return ectoinject.RegisterInstance[candidate.Store](container, a.candidates) },
		func() error { return ectoinject.RegisterInstance[candidate.HistoryService](container, a.matcher) },
		func() error { return ectoinject.RegisterInstance[candidate.Events](container, a.emitter) },
		func() error { return ectoinject.RegisterInstance[match.Matcher](container, a.matcher) },
		func() error { return ectoinject.RegisterInstance[dashboard.Reporter](container, a.candidates) },
		func() error { return ectoinject.RegisterInstance[alias.Store](container, a.aliases) },
		func() error { return ectoinject.RegisterInstance[employee.Store](container, a.employees) },
		func() error { return ectoinject.RegisterInstance[employee.Events](container, a.emitter) },
		func() error { return ectoinject.RegisterInstance[employee.Bootstrap](container, a.gate) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return nil, err
		}
	}

	return container, nil
}
