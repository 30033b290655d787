package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Listing errors surfaced to the page banner
	ErrPathNotFound = fmt.Errorf("path not found")
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrRateLimited  = fmt.Errorf("rate limited")

	// Per-record errors, never fatal to a batch
	ErrStreamUnavailable = fmt.Errorf("stream link unavailable")
	ErrIncompatible      = fmt.Errorf("file is not playable in a browser")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrReelNotFound       = fmt.Errorf("reel not found")
	ErrRecordNotFound     = fmt.Errorf("video record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
