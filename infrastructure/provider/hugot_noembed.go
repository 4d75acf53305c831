//go:build !embed_model

package provider

import "embed"

// embeddedModelFS is empty without the embed_model build tag; callers gate
// on hasEmbeddedModel before reading it.
var embeddedModelFS embed.FS

const hasEmbeddedModel = false
