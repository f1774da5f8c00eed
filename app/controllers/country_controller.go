package controllers

import (
	"net/http"

	"rightsnet/app/services"

	"github.com/gorilla/mux"
)

// CountryController serves per-country statistics
type CountryController struct {
	countryService *services.CountryService
}

// NewCountryController creates a new CountryController
func NewCountryController(countryService *services.CountryService) *CountryController {
	return &CountryController{countryService: countryService}
}

// Index lists every country with its stats
func (cc *CountryController) Index(w http.ResponseWriter, r *http.Request) {
	stats, err := cc.countryService.List()
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"countries": stats})
}

// Show returns one country's stats
func (cc *CountryController) Show(w http.ResponseWriter, r *http.Request) {
	st, err := cc.countryService.Get(mux.Vars(r)["code"])
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, st)
}
