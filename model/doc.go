// Package model defines the provider-agnostic client contract used by agents
// and the team orchestrator to talk to language models.
//
// Core goals:
//   - One request shape (ordered messages, temperature, JSON mode, stream flag)
//   - Call returns a Response value instead of an error: failures carry a
//     status code and a user-facing message (see Response.ErrorMsg)
//   - CallStream yields content fragments on a channel; an inline error chunk
//     reports a failure and channel close is the terminal sentinel
//   - Lightweight scripted mocking for tests (MockClient)
//
// Providers (model/openai, model/anthropic, model/compat) implement Client so
// higher layers stay decoupled from vendor SDKs. model/provider resolves and
// builds them from configuration.
package model
