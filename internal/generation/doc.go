// Package generation provides interfaces and implementations for
// interacting with external AI/LLM services for content generation. It
// abstracts the details of LLM API integration (Gemini), allowing the
// application to draft flashcards from source text without coupling to a
// specific external service. Drafts are returned to the caller for
// review; nothing is persisted until the authoring service accepts them.
package generation
