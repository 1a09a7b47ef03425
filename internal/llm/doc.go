// Package llm wraps an OpenAI-compatible chat completion endpoint with the
// retry, backoff, and response-sanitization behavior the script generator
// depends on. Responses are requested as JSON objects so callers can decode
// structured payloads with DecodeJSON.
package llm
