//регистрация и вход пользователей клиники;
//хранение пациентов и записей на прием в разрезе клиники;
//прием изменений от offline клиентов.

//GET    /api/v1/health            # Проверка доступности (публичный)
//POST   /api/v1/auth/register     # Регистрация (публичный)
//POST   /api/v1/auth/login        # Логин (публичный)
//POST   /api/v1/auth/refresh      # Обновление токенов (публичный)
//GET    /api/v1/{entity}          # Список документов (auth)
//POST   /api/v1/{entity}          # Создать документ (auth)
//GET    /api/v1/{entity}/{id}     # Получить документ (auth)
//PUT    /api/v1/{entity}/{id}     # Заменить документ (auth)
//DELETE /api/v1/{entity}/{id}     # Удалить документ (auth)
//GET    /metrics                  # Prometheus

package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	documentAPI "clinicsync/internal/app/server/api/http/document"
	healthAPI "clinicsync/internal/app/server/api/http/health"
	"clinicsync/internal/app/server/api/http/middleware"
	"clinicsync/internal/app/server/api/http/middleware/auth"
	"clinicsync/internal/app/server/api/http/middleware/logger"
	"clinicsync/internal/app/server/api/http/middleware/metrics"
	userAPI "clinicsync/internal/app/server/api/http/user"
	"clinicsync/internal/domain/document"
	"clinicsync/internal/domain/record"
	"clinicsync/internal/domain/session"
	"clinicsync/internal/domain/user"
)

type routes interface {
	SetupRoutes(api huma.API)
}

// Deps - сервисы, из которых собирается API.
type Deps struct {
	Users     user.Servicer
	Sessions  session.Servicer
	Documents document.Servicer
	Registry  *prometheus.Registry
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Clinicsync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}

	API := humachi.New(mux, config)

	for _, h := range handlers(API, deps, log) {
		h.SetupRoutes(API)
	}

	if deps.Registry != nil {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	return mux
}

func handlers(API huma.API, deps Deps, log *slog.Logger) []routes {
	authMW := auth.New(API, deps.Sessions, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	var metricsMW func(huma.Context, func(huma.Context))
	if deps.Registry != nil {
		metricsMW = metrics.New(deps.Registry).Middleware()
	}
	public := func() {
		middlewares.Add(loggerMW.Middleware())
		if metricsMW != nil {
			middlewares.Add(metricsMW)
		}
	}

	public()
	out := []routes{healthAPI.NewHandler(log, middlewares.GetAllAndClear())}

	public()
	out = append(out, userAPI.NewHandler(deps.Users, deps.Sessions, log, middlewares.GetAllAndClear()))

	for _, entity := range record.Entities() {
		public()
		middlewares.Add(authMW.Middleware())
		out = append(out, documentAPI.NewHandler(deps.Documents, entity, log, middlewares.GetAllAndClear()))
	}

	return out
}
