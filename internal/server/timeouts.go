// internal/server/timeouts.go
//
// HTTP server constructor with hardened timeouts.
//
// The API serves two tiny JSON endpoints, so the limits are tight:
//
//   • ReadTimeout   – abort slow-loris headers and bodies (5 s)
//   • WriteTimeout  – cap total response time, including SES dispatch (15 s)
//   • IdleTimeout   – close keep-alives on idle clients (60 s)
//
// Centralised here so cmd/web doesn’t repeat boilerplate.
//

package server

import (
	"net/http"
	"time"
)

// New constructs an *http.Server for the contact API.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 16 << 10, // headers are small; tokens fit with room
	}
}
