package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qseq/pkg/qapi/services"
)

func RegisterAPI(api huma.API, svcs *services.Services) {
	if svcs == nil {
		svcs = services.EmptyServices()
	}
	RegisterHealth(api)
	RegisterPostProcessing(api, svcs.PostProcess)
	RegisterSequencingRuns(api, svcs.Runs)
}
