// Package openai implements the ai capability interfaces against any
// OpenAI-compatible API (OpenAI, Azure OpenAI, Ollama, vLLM, LocalAI).
//
// Embedding and generation may point at different hosts and models; both
// are driven by a single ai.Config.
package openai
