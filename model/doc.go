// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function declarations (ToolDefinition, FunctionDefinition)
//   - Keep request/response shapes minimal and transport independent
//   - Surface provider failures as typed InvocationErrors so the retry
//     policy (RetryPolicy, WithRetry) can separate transient from permanent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (router, stage executor) remain decoupled from
// vendor SDKs.
package model
