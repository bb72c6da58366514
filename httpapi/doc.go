// Package httpapi exposes the authcore engine as JSON endpoints under
// /auth. Every response uses the {code, message, data} envelope; error codes
// come from authcore.Describe.
package httpapi
