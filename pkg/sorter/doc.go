// Package sorter orders the containers of an image before they are replaced.
//
// Usage example:
//
//	sorter.SortByCreated(containers)
package sorter
