// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports). The core services depend only on these
// interfaces; concrete adapters for Google Drive, Gemini and Pinecone
// live under internal/adapters/driven.
package driven
