// Package assistant is the canned coding assistant.
//
// Questions are lower-cased and matched against an ordered keyword table
// loaded from TOML. The first rule with a keyword contained in the question
// wins, otherwise the default answer is used. Answers are markdown rendered
// with goldmark and sanitized with bluemonday before they are wrapped in the
// suggestion card.
package assistant
