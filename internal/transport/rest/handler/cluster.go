package handler

import (
	"net/http"

	"wellmind/internal/model"
	"wellmind/internal/service"
)

// ClusterHandler handles cluster catalog endpoints
type ClusterHandler struct {
	catalogSvc *service.CatalogService
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(catalogSvc *service.CatalogService) *ClusterHandler {
	return &ClusterHandler{catalogSvc: catalogSvc}
}

type catalogResponse struct {
	Scheme       string                `json:"scheme"`
	Catalog      *model.ClusterCatalog `json:"catalog"`
	Canonical    []model.ClusterID     `json:"canonical"`
	UsedFallback bool                  `json:"usedFallback"`
}

func newCatalogResponse(c *model.ClusterCatalog, usedFallback bool) catalogResponse {
	scheme := "fixed"
	if c.HasCentroids() {
		scheme = "learned"
	}
	return catalogResponse{
		Scheme:       scheme,
		Catalog:      c,
		Canonical:    model.CanonicalClusters(),
		UsedFallback: usedFallback,
	}
}

// List handles GET /v1/clusters
func (h *ClusterHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCatalogResponse(h.catalogSvc.Current(), false))
}

// Refresh handles POST /v1/clusters/refresh
func (h *ClusterHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	catalog, usedFallback, err := h.catalogSvc.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newCatalogResponse(catalog, usedFallback))
}
