package orders

import "errors"

// Taksonomi error bisnis; httpx yang memetakan ke kode HTTP.
var (
	ErrInvalidInput        = errors.New("input tidak valid")
	ErrUnauthenticated     = errors.New("butuh autentikasi")
	ErrForbidden           = errors.New("tidak punya akses")
	ErrNotFound            = errors.New("order tidak ditemukan")
	ErrInvalidTransition   = errors.New("transisi status tidak diizinkan")
	ErrGatewayUnavailable  = errors.New("payment gateway tidak bisa dihubungi")
	ErrGatewayVerification = errors.New("verifikasi gateway gagal")
	ErrAmbiguousMapping    = errors.New("status gateway tidak dikenali")
	ErrDuplicateNumber     = errors.New("order number sudah terpakai")
)
