// Package contact implements the demo contact and login forms. Submissions
// are validated with go-playground/validator and kept in memory only.
package contact
