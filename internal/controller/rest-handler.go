package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/jukebox/pkg/rest"
)

func (c controller) searchYT(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "search-term")
	if term == "" || c.catalog == nil {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"data": nil})
		return
	}

	candidates, err := c.catalog.Search(r.Context(), term)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to search", "term", term, "error", err)
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"data": nil})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": candidates})
}
