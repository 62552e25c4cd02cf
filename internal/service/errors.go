package service

import (
	"errors"

	"campus-store/internal/mpesa"
	"campus-store/internal/repository"
)

// Errores de negocio exportados (los usa el controller)
var (
	ErrValidation         = errors.New("datos inválidos")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateCheckout  = errors.New("el checkout ya fue enviado con esta clave")
	ErrUnverifiedCallback = errors.New("callback con firma inválida")
)

// Alias para que el controller no dependa de repository ni de mpesa.
var (
	ErrNotFound          = repository.ErrNotFound
	ErrAlreadyPaid       = repository.ErrAlreadyPaid
	ErrReviewExists      = repository.ErrReviewExists
	ErrReviewNotFound    = repository.ErrReviewNotFound
	ErrUpstreamAuth      = mpesa.ErrUpstreamAuth
	ErrUpstreamRequest   = mpesa.ErrUpstreamRequest
	ErrUpstreamRejected  = mpesa.ErrUpstreamRejected
	ErrMalformedCallback = mpesa.ErrMalformedCallback
)

// Actor es el usuario autenticado que hace la operación.
type Actor struct {
	UserID  string
	IsAdmin bool
}
