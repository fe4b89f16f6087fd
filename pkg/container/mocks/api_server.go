// Package mocks provides ghttp handlers emulating the Docker Engine API endpoints used
// by the container client.
package mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerImageType "github.com/docker/docker/api/types/image"
)

// FoundStatus selects between a successful and a "no such object" response.
type FoundStatus bool

const (
	Found   FoundStatus = true
	Missing FoundStatus = false
)

// Mock response fixture for no-content status (204).
var noContentStatusResponse = ghttp.RespondWith(http.StatusNoContent, nil)

func notFoundResponse(kind, name string) http.HandlerFunc {
	return ghttp.RespondWithJSONEncoded(http.StatusNotFound, map[string]string{
		"message": fmt.Sprintf("No such %s: %s", kind, name),
	})
}

// ErrorResponse responds with status and a Docker-style error message.
func ErrorResponse(status int, message string) http.HandlerFunc {
	return ghttp.RespondWithJSONEncoded(status, map[string]string{"message": message})
}

func statusHandler(method, path string, found FoundStatus, kind, name string) http.HandlerFunc {
	responseHandler := noContentStatusResponse
	if !found {
		responseHandler = notFoundResponse(kind, name)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(method, gomega.HaveSuffix(path)),
		responseHandler,
	)
}

// ListContainersHandler serves containers for GET /containers/json?all=1.
func ListContainersHandler(containers ...dockerContainerType.Summary) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodGet, gomega.HaveSuffix("/containers/json"), "all=1"),
		ghttp.RespondWithJSONEncoded(http.StatusOK, containers),
	)
}

// InspectContainerHandler serves info, or a 404 when info is nil.
func InspectContainerHandler(name string, info *dockerContainerType.InspectResponse) http.HandlerFunc {
	responseHandler := notFoundResponse("container", name)
	if info != nil {
		responseHandler = ghttp.RespondWithJSONEncoded(http.StatusOK, info)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodGet, gomega.HaveSuffix("/containers/%s/json", name)),
		responseHandler,
	)
}

// StopContainerHandler answers POST /containers/{name}/stop.
func StopContainerHandler(name string, found FoundStatus) http.HandlerFunc {
	return statusHandler(http.MethodPost, "/containers/"+name+"/stop", found, "container", name)
}

// StartContainerHandler answers POST /containers/{name}/start.
func StartContainerHandler(name string, found FoundStatus) http.HandlerFunc {
	return statusHandler(http.MethodPost, "/containers/"+name+"/start", found, "container", name)
}

// RenameContainerHandler verifies POST /containers/{name}/rename?name={newName}.
func RenameContainerHandler(name, newName string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodPost, gomega.HaveSuffix("/containers/%s/rename", name), "name="+newName),
		noContentStatusResponse,
	)
}

// RemoveContainerHandler answers DELETE /containers/{name}.
func RemoveContainerHandler(name string, found FoundStatus) http.HandlerFunc {
	return statusHandler(http.MethodDelete, "/containers/"+name, found, "container", name)
}

// CreateContainerHandler verifies POST /containers/create?name={name}, passes the decoded
// request to inspect and responds with id.
func CreateContainerHandler(
	name, id string,
	inspect func(request dockerContainerType.CreateRequest),
) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodPost, gomega.HaveSuffix("/containers/create"), "name="+name),
		func(_ http.ResponseWriter, r *http.Request) {
			if inspect == nil {
				return
			}

			var request dockerContainerType.CreateRequest
			gomega.Expect(json.NewDecoder(r.Body).Decode(&request)).To(gomega.Succeed())
			inspect(request)
		},
		ghttp.RespondWithJSONEncoded(http.StatusCreated, dockerContainerType.CreateResponse{ID: id}),
	)
}

// ConnectNetworkHandler answers POST /networks/{network}/connect.
func ConnectNetworkHandler(network string, found FoundStatus) http.HandlerFunc {
	return statusHandler(http.MethodPost, "/networks/"+network+"/connect", found, "network", network)
}

// PullImageHandler streams messages as the newline-delimited JSON pull progress log.
func PullImageHandler(messages ...string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodPost, gomega.HaveSuffix("/images/create")),
		ghttp.RespondWith(http.StatusOK, strings.Join(messages, "\n")+"\n"),
	)
}

// ListImagesHandler serves images for GET /images/json.
func ListImagesHandler(images ...dockerImageType.Summary) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodGet, gomega.HaveSuffix("/images/json")),
		ghttp.RespondWithJSONEncoded(http.StatusOK, images),
	)
}

// RemoveImageHandler answers DELETE /images/{ref} with status; 200 reports ref as
// untagged.
func RemoveImageHandler(ref string, status int) http.HandlerFunc {
	responseHandler := ErrorResponse(status, "unable to remove "+ref)
	if status == http.StatusOK {
		responseHandler = ghttp.RespondWithJSONEncoded(http.StatusOK, []dockerImageType.DeleteResponse{
			{Untagged: ref},
		})
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodDelete, gomega.HaveSuffix("/images/"+ref)),
		responseHandler,
	)
}
