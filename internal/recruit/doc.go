// Package recruit implements the recruitment submission workflow.
//
// One instance is a short-lived, per-actor interaction sequence: pick a
// category, fill the detail form, validate, pass the cooldown gate, then
// hand off to the broadcast relay. Instance state lives in a token-keyed
// session store; only the cooldown gate is shared across instances.
package recruit
