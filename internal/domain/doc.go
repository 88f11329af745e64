// Package domain defines the core business entities of cardlog:
// users, flashcards, and the audit records that track every change
// to a flashcard's question, answer, status, and deletion marker.
package domain
