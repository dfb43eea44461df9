// Package openai is a minimal client for OpenAI-compatible chat completion endpoints.
//
// Each Complete call is a single attempt: there is no retry or backoff. The API key
// is supplied per call because every analysis request carries its own credential.
package openai
