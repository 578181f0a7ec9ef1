// SPDX-License-Identifier: MPL-2.0

// Package testutil provides shared test helpers: a scripted fake for the
// subprocess invoker and filesystem fixtures for fake virtualenvs.
package testutil
