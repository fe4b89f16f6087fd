// Package container talks to the container runtime over the Docker Engine API.
//
// It lists, inspects and recreates containers, pulls, lists and removes images, and
// derives the creation request that reproduces an existing container on a new image.
// Image references are compared in a normalized form so that a configured image such
// as "postgres" matches containers started from "library/postgres:16".
package container
