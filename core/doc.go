// Package core contains the shared conversation state model used by the
// turn scheduler, the interview agents and the evaluation pipeline: messages,
// the append-only history, the per-turn status slot and the typed state delta
// that tools return instead of mutating state directly.
package core
