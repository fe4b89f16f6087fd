package container

import (
	"strings"
	"time"
)

// NoneTag is the placeholder the runtime reports for untagged images.
const NoneTag = "<none>"

// Container summarises a container as listed by the runtime.
type Container struct {
	Name     string
	ID       string
	State    string
	ImageRef string
	// Created is the creation time in seconds since the epoch.
	Created int64
}

// ShortID returns the 12 character form of the container ID.
func (c Container) ShortID() string {
	return ShortID(c.ID)
}

// Image summarises a local image.
type Image struct {
	ID       string
	RepoTags []string
	Created  int64
}

// CreatedAt returns the image creation time.
func (i Image) CreatedAt() time.Time {
	return time.Unix(i.Created, 0)
}

// Tags returns the tag part of every repository tag, skipping untagged entries.
func (i Image) Tags() []string {
	tags := make([]string, 0, len(i.RepoTags))

	for _, repoTag := range i.RepoTags {
		if tag := TagOf(repoTag); tag != "" && tag != NoneTag {
			tags = append(tags, tag)
		}
	}

	return tags
}

// TagOf returns the tag of a "repository:tag" string, or an empty string when the
// reference carries no tag.
func TagOf(repoTag string) string {
	lastColon := strings.LastIndex(repoTag, ":")
	if lastColon == -1 || lastColon < strings.LastIndex(repoTag, "/") {
		return ""
	}

	return repoTag[lastColon+1:]
}

// ShortID strips the algorithm prefix from an ID and truncates it to 12 characters.
func ShortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}

	return id
}
