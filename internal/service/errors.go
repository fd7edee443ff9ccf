package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConnected    = errors.New("transport is not connected")
	ErrInvalidTenantID = errors.New("invalid tenant id: only letters, numbers, _ and - allowed")
)
