// Package entity defines the JSON envelope of the console API.
package entity

// Msg is the standard API answer.
type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj"`
}
