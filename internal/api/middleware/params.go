package middleware

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "suitehub/internal/api/context"
)

// Param reads a route parameter injected by the router.
func Param(r *http.Request, name string) string {
	params, ok := r.Context().Value(apiContext.Params).(httprouter.Params)
	if !ok {
		return ""
	}
	return params.ByName(name)
}
