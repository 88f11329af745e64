// Package api contains the HTTP handlers, request/response models, and
// error mapping for the flashcard API. Handlers stay thin: they decode and
// validate requests, call the service layer, and translate errors into
// sanitized responses with stable message strings.
package api
