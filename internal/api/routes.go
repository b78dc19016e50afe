package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/pkg/version"
)

// OpenAPIPath serves the generated OpenAPI document.
const OpenAPIPath = "/api/openapi.json"

// RegisterRoutes adds the job-title web service to container.
func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/job-search").
		To(handler.Search).
		Doc("Suggest job titles for a free-text query").
		Metadata(restfulspec.KeyOpenAPITags, []string{"search"}).
		Reads(SearchRequest{}).
		Writes(SearchResponse{}).
		Returns(200, "OK", SearchResponse{}).
		Returns(400, "Bad Request", ErrorResponse{}).
		Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.Route(ws.GET("/job-search").
		To(handler.SearchQuery).
		Doc("Suggest job titles for a free-text query").
		Metadata(restfulspec.KeyOpenAPITags, []string{"search"}).
		Param(ws.QueryParameter("q", "Query text").DataType("string").Required(true)).
		Param(ws.QueryParameter("limit", "Maximum number of suggestions").DataType("integer").Required(false)).
		Param(ws.QueryParameter("fuzzy_threshold", "Lexical score (0-100) that skips embedding search").DataType("number").Required(false)).
		Writes(SearchResponse{}).
		Returns(200, "OK", SearchResponse{}).
		Returns(400, "Bad Request", ErrorResponse{}).
		Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.Route(ws.POST("/job-lookup").
		To(handler.Lookup).
		Doc("Resolve a job title to its record").
		Metadata(restfulspec.KeyOpenAPITags, []string{"lookup"}).
		Reads(LookupRequest{}).
		Writes(corpus.Match{}).
		Returns(200, "OK", corpus.Match{}).
		Returns(400, "Bad Request", ErrorResponse{}))

	ws.Route(ws.GET("/health").
		To(handler.Health).
		Doc("Health check").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthResponse{}).
		Returns(200, "OK", HealthResponse{}))

	ws.Route(ws.GET("/stats").
		To(handler.Stats).
		Doc("Query telemetry and corpus summary").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(StatsResponse{}).
		Returns(200, "OK", StatsResponse{}))

	container.Add(ws)
}

// RegisterOpenAPI serves the OpenAPI document for the services already in
// container. Call it after RegisterRoutes.
func RegisterOpenAPI(container *restful.Container) {
	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       OpenAPIPath,
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "titlesearch API",
			Description: "Hybrid lexical and semantic job-title search",
			Version:     version.Version,
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "search", Description: "Job title suggestions"}},
		{TagProps: spec.TagProps{Name: "lookup", Description: "Job record resolution"}},
		{TagProps: spec.TagProps{Name: "health", Description: "Health and statistics"}},
	}
}
