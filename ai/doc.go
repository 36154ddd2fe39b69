// Copyright 2025 Emberlight Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the AI distillation service.
//
// The pipeline depends only on the interfaces defined here; concrete
// clients live in sub-packages:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//     (Ollama, LocalAI, vLLM, hosted OpenAI)
//   - ai/mock: test doubles for unit testing without a live model
//
// Public constructors in the implementation packages return interface
// types to prevent coupling to a concrete client. Mock constructors
// return concrete types so tests can inject behavior and assert calls.
//
// Distillation failures are classified into the sentinel errors declared
// in errors.go (authentication, rate limit, timeout, invalid response) so
// the pipeline can surface them verbatim on the failed item.
package ai
