package qapi

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quatton/qseq/pkg/qapi/routes"
	"github.com/quatton/qseq/pkg/qapi/services"
)

type Api struct {
	Api    huma.API
	Router *chi.Mux
}

// NewApi builds the router with every route registered. svcs may be nil, in
// which case only /health answers successfully.
func NewApi(svcs *services.Services) *Api {
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	config := huma.DefaultConfig("qseq", "1.0.0")
	config.Info.Description = "Trigger SMRT cell post-processing and read stored sequencing metrics."

	api := humachi.New(router, config)
	routes.RegisterAPI(api, svcs)

	return &Api{Api: api, Router: router}
}
