// Package state keeps short-lived conversation state per chat: the current
// step and a bag of temporary values. It does not survive restarts.
package state
