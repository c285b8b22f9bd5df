// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package jobs runs document processing asynchronously on a worker pool.
//
// The Orchestrator accepts job submissions, enforces one active job per
// document, tracks progress in the job repository, and records a terminal
// Success or Failure exactly once. Cancellation is advisory: it only
// prevents work that has not started yet.
package jobs
