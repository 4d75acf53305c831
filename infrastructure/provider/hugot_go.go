//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

// newHugotSession uses the pure-Go backend, trading inference speed for a
// cgo-free build.
func newHugotSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
