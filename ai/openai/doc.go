// Package openai implements the ai interfaces against OpenAI-compatible
// chat APIs via langchaingo. It works with hosted OpenAI as well as local
// servers such as Ollama, LocalAI and vLLM.
package openai
