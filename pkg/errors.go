// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level sentinel error'ları içerir. Karşılaştırma errors.Is ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
package pkg

import "errors"

// Service ve repository katmanı bunları (çoğunlukla wrap ederek) döner,
// handler katmanı HTTP status code'una çevirir.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")

	// ErrInvalidState, bir nesnenin mevcut durumunda geçersiz olan işlemler için.
	// Ör: aynı connection ID ile ikinci kez attach.
	ErrInvalidState = errors.New("invalid state")
)
