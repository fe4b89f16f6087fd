// Package registry provides the registry client used to resolve moving tags.
//
// Key components:
//   - auth: Token strategies per registry host and token fetching.
//   - digest: Manifest digest retrieval via HEAD and GET, with platform selection.
//   - helpers: Image reference parsing and registry constants.
//   - manifest: Manifest, tag list and Hub API URL construction.
//   - registry: The Client facade (tokens, digests, tag lists, recency listing) and
//     credential lookup for token requests and image pulls.
//
// Usage example:
//
//	client := registry.NewClient(registry.Options{Timeout: 30 * time.Second})
//	ref := helpers.ParseImageReference("linuxserver/sonarr")
//	token := client.GetToken(ctx, ref)
//	latest := client.GetDigestHead(ctx, ref, "latest", token)
//
// Network failures never escape the client: they are logged and surface as empty
// results, leaving the caller to skip or retry.
package registry
