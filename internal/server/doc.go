// Package server implements the realtime gateway and HTTP surface for the
// wanderchat backend.
//
// The hub serializes client registration and event delivery through a single
// run loop; the chat stores it mutates live in internal/chat and carry their
// own locks, so every action is applied before its events are broadcast.
package server
