package trickle

// Package trickle provides:
//
// - Incremental JSON parsing over chunks of arbitrary size (Parser.Feed)
// - Path-keyed progress reporting (completed/pending fields, event callbacks)
// - Integrated JSON Schema draft-07 subset validation (Validator, jsonschema/)
// - A lenient mode for language-model output (trailing commas, unquoted keys,
//   single quotes, missing separators)
//
// Design policy:
// - Keep only public APIs in the root package; put the tokenizer under internal/.
// - Place the schema vocabulary under jsonschema/ and the CLI under cmd/trickle.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	p := trickle.New(trickle.Options{Schema: schema, LLMMode: true})
//	for chunk := range stream {
//		res, err := p.Feed(chunk)
//		_ = res.CompletedFields
//	}
//	root, err := p.Result()
