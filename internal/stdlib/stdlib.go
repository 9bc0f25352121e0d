// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package stdlib holds the default prelude, written in the markup language
// and parsed into every runtime before documents.
package stdlib

import _ "embed"

// Name is the source name the prelude is parsed under. A stored library
// with this name replaces the embedded prelude.
const Name = "__prelude__"

//go:embed prelude.emk
var Prelude string
